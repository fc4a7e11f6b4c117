package gateway

import (
	"context"
	"fmt"
	"io"

	"github.com/lusky3/play-store-mcp/internal/play/retry"
)

// Guarded routes every call of the wrapped gateway through a retry policy.
// DeleteEdit is sent once: discards are best effort and must not stall the
// failure path. Uploads are retried only when the media can be rewound.
type Guarded struct {
	next   Gateway
	policy retry.Policy
}

var _ Gateway = (*Guarded)(nil)

// Guard wraps g with policy.
func Guard(g Gateway, policy retry.Policy) *Guarded {
	return &Guarded{next: g, policy: policy}
}

func (g *Guarded) InsertEdit(ctx context.Context, packageName string) (string, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (string, error) {
		return g.next.InsertEdit(ctx, packageName)
	})
}

func (g *Guarded) CommitEdit(ctx context.Context, packageName, editID string) error {
	return g.policy.Run(ctx, func(ctx context.Context) error {
		return g.next.CommitEdit(ctx, packageName, editID)
	})
}

func (g *Guarded) DeleteEdit(ctx context.Context, packageName, editID string) error {
	return g.next.DeleteEdit(ctx, packageName, editID)
}

func (g *Guarded) ListTracks(ctx context.Context, packageName, editID string) ([]Track, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]Track, error) {
		return g.next.ListTracks(ctx, packageName, editID)
	})
}

func (g *Guarded) GetTrack(ctx context.Context, packageName, editID, track string) (Track, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (Track, error) {
		return g.next.GetTrack(ctx, packageName, editID, track)
	})
}

func (g *Guarded) UpdateTrack(ctx context.Context, packageName, editID string, track Track) error {
	return g.policy.Run(ctx, func(ctx context.Context) error {
		return g.next.UpdateTrack(ctx, packageName, editID, track)
	})
}

func (g *Guarded) UploadBinary(ctx context.Context, packageName, editID string, media io.Reader, contentType string) (int64, error) {
	seeker, ok := media.(io.Seeker)
	if !ok {
		return g.next.UploadBinary(ctx, packageName, editID, media, contentType)
	}
	attempt := 0
	return retry.Do(ctx, g.policy, func(ctx context.Context) (int64, error) {
		attempt++
		if attempt > 1 {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return 0, fmt.Errorf("rewind upload: %w", err)
			}
		}
		return g.next.UploadBinary(ctx, packageName, editID, media, contentType)
	})
}

func (g *Guarded) GetListing(ctx context.Context, packageName, editID, language string) (Listing, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (Listing, error) {
		return g.next.GetListing(ctx, packageName, editID, language)
	})
}

func (g *Guarded) UpdateListing(ctx context.Context, packageName, editID string, listing Listing) error {
	return g.policy.Run(ctx, func(ctx context.Context) error {
		return g.next.UpdateListing(ctx, packageName, editID, listing)
	})
}

func (g *Guarded) ListListings(ctx context.Context, packageName, editID string) ([]Listing, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]Listing, error) {
		return g.next.ListListings(ctx, packageName, editID)
	})
}

func (g *Guarded) GetTesters(ctx context.Context, packageName, editID, track string) ([]string, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]string, error) {
		return g.next.GetTesters(ctx, packageName, editID, track)
	})
}

func (g *Guarded) UpdateTesters(ctx context.Context, packageName, editID, track string, googleGroups []string) error {
	return g.policy.Run(ctx, func(ctx context.Context) error {
		return g.next.UpdateTesters(ctx, packageName, editID, track, googleGroups)
	})
}

func (g *Guarded) GetDetails(ctx context.Context, packageName, editID string) (AppDetails, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (AppDetails, error) {
		return g.next.GetDetails(ctx, packageName, editID)
	})
}

func (g *Guarded) ListReviews(ctx context.Context, packageName string, query ReviewQuery) ([]Review, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]Review, error) {
		return g.next.ListReviews(ctx, packageName, query)
	})
}

func (g *Guarded) ReplyToReview(ctx context.Context, packageName, reviewID, text string) error {
	return g.policy.Run(ctx, func(ctx context.Context) error {
		return g.next.ReplyToReview(ctx, packageName, reviewID, text)
	})
}

func (g *Guarded) ListSubscriptions(ctx context.Context, packageName string) ([]Subscription, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]Subscription, error) {
		return g.next.ListSubscriptions(ctx, packageName)
	})
}

func (g *Guarded) GetSubscriptionPurchase(ctx context.Context, packageName, token string) (SubscriptionPurchase, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (SubscriptionPurchase, error) {
		return g.next.GetSubscriptionPurchase(ctx, packageName, token)
	})
}

func (g *Guarded) ListVoidedPurchases(ctx context.Context, packageName string, maxResults int64) ([]VoidedPurchase, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]VoidedPurchase, error) {
		return g.next.ListVoidedPurchases(ctx, packageName, maxResults)
	})
}

func (g *Guarded) ListInAppProducts(ctx context.Context, packageName string) ([]InAppProduct, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) ([]InAppProduct, error) {
		return g.next.ListInAppProducts(ctx, packageName)
	})
}

func (g *Guarded) GetInAppProduct(ctx context.Context, packageName, sku string) (InAppProduct, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (InAppProduct, error) {
		return g.next.GetInAppProduct(ctx, packageName, sku)
	})
}

func (g *Guarded) GetExpansionFile(ctx context.Context, packageName, editID string, versionCode int64, fileType string) (ExpansionFile, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (ExpansionFile, error) {
		return g.next.GetExpansionFile(ctx, packageName, editID, versionCode, fileType)
	})
}

func (g *Guarded) GetOrder(ctx context.Context, packageName, orderID string) (Order, error) {
	return retry.Do(ctx, g.policy, func(ctx context.Context) (Order, error) {
		return g.next.GetOrder(ctx, packageName, orderID)
	})
}
