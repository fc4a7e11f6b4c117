package gateway

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/lusky3/play-store-mcp/internal/platform/timeouts"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	userAgent  = "play-store-mcp"
	tracerName = "github.com/lusky3/play-store-mcp/internal/play/gateway"
)

// Client implements Gateway over the androidpublisher v3 library.
type Client struct {
	svc           *androidpublisher.Service
	tracer        trace.Tracer
	callTimeout   time.Duration
	uploadTimeout time.Duration
}

var _ Gateway = (*Client)(nil)

// NewClient builds a client authenticated with creds.
func NewClient(ctx context.Context, creds *google.Credentials, opts ...option.ClientOption) (*Client, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials are required")
	}
	opts = append([]option.ClientOption{option.WithCredentials(creds)}, opts...)
	return NewClientWithOptions(ctx, opts...)
}

// NewClientWithOptions builds a client from raw client options, for example an
// endpoint override in tests.
func NewClientWithOptions(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithUserAgent(userAgent)}, opts...)
	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create androidpublisher service: %w", err)
	}
	return &Client{
		svc:           svc,
		tracer:        otel.Tracer(tracerName),
		callTimeout:   timeouts.GatewayCall,
		uploadTimeout: timeouts.Upload,
	}, nil
}

func call[T any](ctx context.Context, c *Client, op string, timeout time.Duration, attrs []attribute.KeyValue, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := c.tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := fn(ctx)
	if err != nil {
		err = normalizeError(op, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return value, err
}

func pkgAttrs(packageName string, extra ...attribute.KeyValue) []attribute.KeyValue {
	return append([]attribute.KeyValue{attribute.String("play.package_name", packageName)}, extra...)
}

func editAttrs(packageName, editID string, extra ...attribute.KeyValue) []attribute.KeyValue {
	return pkgAttrs(packageName, append([]attribute.KeyValue{attribute.String("play.edit_id", editID)}, extra...)...)
}

func (c *Client) InsertEdit(ctx context.Context, packageName string) (string, error) {
	return call(ctx, c, "edits.insert", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) (string, error) {
		edit, err := c.svc.Edits.Insert(packageName, &androidpublisher.AppEdit{}).Context(ctx).Do()
		if err != nil {
			return "", err
		}
		return edit.Id, nil
	})
}

func (c *Client) CommitEdit(ctx context.Context, packageName, editID string) error {
	_, err := call(ctx, c, "edits.commit", c.callTimeout, editAttrs(packageName, editID), func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Edits.Commit(packageName, editID).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

func (c *Client) DeleteEdit(ctx context.Context, packageName, editID string) error {
	_, err := call(ctx, c, "edits.delete", c.callTimeout, editAttrs(packageName, editID), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.svc.Edits.Delete(packageName, editID).Context(ctx).Do()
	})
	return err
}

func (c *Client) ListTracks(ctx context.Context, packageName, editID string) ([]Track, error) {
	return call(ctx, c, "edits.tracks.list", c.callTimeout, editAttrs(packageName, editID), func(ctx context.Context) ([]Track, error) {
		resp, err := c.svc.Edits.Tracks.List(packageName, editID).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		tracks := make([]Track, 0, len(resp.Tracks))
		for _, t := range resp.Tracks {
			tracks = append(tracks, fromAPITrack(t))
		}
		return tracks, nil
	})
}

func (c *Client) GetTrack(ctx context.Context, packageName, editID, track string) (Track, error) {
	attrs := editAttrs(packageName, editID, attribute.String("play.track", track))
	return call(ctx, c, "edits.tracks.get", c.callTimeout, attrs, func(ctx context.Context) (Track, error) {
		resp, err := c.svc.Edits.Tracks.Get(packageName, editID, track).Context(ctx).Do()
		if err != nil {
			return Track{}, err
		}
		return fromAPITrack(resp), nil
	})
}

func (c *Client) UpdateTrack(ctx context.Context, packageName, editID string, track Track) error {
	attrs := editAttrs(packageName, editID, attribute.String("play.track", track.Name))
	_, err := call(ctx, c, "edits.tracks.update", c.callTimeout, attrs, func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Edits.Tracks.Update(packageName, editID, track.Name, toAPITrack(track)).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

func (c *Client) UploadBinary(ctx context.Context, packageName, editID string, media io.Reader, contentType string) (int64, error) {
	attrs := editAttrs(packageName, editID, attribute.String("play.content_type", contentType))
	if contentType == ContentTypeBundle {
		return call(ctx, c, "edits.bundles.upload", c.uploadTimeout, attrs, func(ctx context.Context) (int64, error) {
			bundle, err := c.svc.Edits.Bundles.Upload(packageName, editID).
				Media(media, googleapi.ContentType(contentType)).
				Context(ctx).
				Do()
			if err != nil {
				return 0, err
			}
			return bundle.VersionCode, nil
		})
	}
	return call(ctx, c, "edits.apks.upload", c.uploadTimeout, attrs, func(ctx context.Context) (int64, error) {
		apk, err := c.svc.Edits.Apks.Upload(packageName, editID).
			Media(media, googleapi.ContentType(contentType)).
			Context(ctx).
			Do()
		if err != nil {
			return 0, err
		}
		return apk.VersionCode, nil
	})
}

func (c *Client) GetListing(ctx context.Context, packageName, editID, language string) (Listing, error) {
	attrs := editAttrs(packageName, editID, attribute.String("play.language", language))
	return call(ctx, c, "edits.listings.get", c.callTimeout, attrs, func(ctx context.Context) (Listing, error) {
		resp, err := c.svc.Edits.Listings.Get(packageName, editID, language).Context(ctx).Do()
		if err != nil {
			return Listing{}, err
		}
		listing := fromAPIListing(resp)
		if listing.Language == "" {
			listing.Language = language
		}
		return listing, nil
	})
}

func (c *Client) UpdateListing(ctx context.Context, packageName, editID string, listing Listing) error {
	attrs := editAttrs(packageName, editID, attribute.String("play.language", listing.Language))
	_, err := call(ctx, c, "edits.listings.update", c.callTimeout, attrs, func(ctx context.Context) (struct{}, error) {
		body := &androidpublisher.Listing{
			Language:         listing.Language,
			Title:            listing.Title,
			ShortDescription: listing.ShortDescription,
			FullDescription:  listing.FullDescription,
			Video:            listing.Video,
		}
		_, err := c.svc.Edits.Listings.Update(packageName, editID, listing.Language, body).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

func (c *Client) ListListings(ctx context.Context, packageName, editID string) ([]Listing, error) {
	return call(ctx, c, "edits.listings.list", c.callTimeout, editAttrs(packageName, editID), func(ctx context.Context) ([]Listing, error) {
		resp, err := c.svc.Edits.Listings.List(packageName, editID).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		listings := make([]Listing, 0, len(resp.Listings))
		for _, l := range resp.Listings {
			listings = append(listings, fromAPIListing(l))
		}
		return listings, nil
	})
}

func (c *Client) GetTesters(ctx context.Context, packageName, editID, track string) ([]string, error) {
	attrs := editAttrs(packageName, editID, attribute.String("play.track", track))
	return call(ctx, c, "edits.testers.get", c.callTimeout, attrs, func(ctx context.Context) ([]string, error) {
		resp, err := c.svc.Edits.Testers.Get(packageName, editID, track).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.GoogleGroups, nil
	})
}

func (c *Client) UpdateTesters(ctx context.Context, packageName, editID, track string, googleGroups []string) error {
	attrs := editAttrs(packageName, editID, attribute.String("play.track", track))
	_, err := call(ctx, c, "edits.testers.update", c.callTimeout, attrs, func(ctx context.Context) (struct{}, error) {
		body := &androidpublisher.Testers{GoogleGroups: googleGroups, ForceSendFields: []string{"GoogleGroups"}}
		_, err := c.svc.Edits.Testers.Update(packageName, editID, track, body).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

func (c *Client) GetDetails(ctx context.Context, packageName, editID string) (AppDetails, error) {
	return call(ctx, c, "edits.details.get", c.callTimeout, editAttrs(packageName, editID), func(ctx context.Context) (AppDetails, error) {
		resp, err := c.svc.Edits.Details.Get(packageName, editID).Context(ctx).Do()
		if err != nil {
			return AppDetails{}, err
		}
		return AppDetails{
			DefaultLanguage: resp.DefaultLanguage,
			ContactEmail:    resp.ContactEmail,
			ContactPhone:    resp.ContactPhone,
			ContactWebsite:  resp.ContactWebsite,
		}, nil
	})
}

func (c *Client) GetExpansionFile(ctx context.Context, packageName, editID string, versionCode int64, fileType string) (ExpansionFile, error) {
	attrs := editAttrs(packageName, editID,
		attribute.Int64("play.version_code", versionCode),
		attribute.String("play.expansion_file_type", fileType))
	return call(ctx, c, "edits.expansionfiles.get", c.callTimeout, attrs, func(ctx context.Context) (ExpansionFile, error) {
		resp, err := c.svc.Edits.Expansionfiles.Get(packageName, editID, versionCode, fileType).Context(ctx).Do()
		if err != nil {
			return ExpansionFile{}, err
		}
		return ExpansionFile{FileSize: resp.FileSize, ReferencesVersion: resp.ReferencesVersion}, nil
	})
}

func (c *Client) ListReviews(ctx context.Context, packageName string, query ReviewQuery) ([]Review, error) {
	return call(ctx, c, "reviews.list", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) ([]Review, error) {
		req := c.svc.Reviews.List(packageName).Context(ctx)
		if query.MaxResults > 0 {
			req = req.MaxResults(query.MaxResults)
		}
		if query.StartIndex > 0 {
			req = req.StartIndex(query.StartIndex)
		}
		if query.TranslationLanguage != "" {
			req = req.TranslationLanguage(query.TranslationLanguage)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, err
		}
		reviews := make([]Review, 0, len(resp.Reviews))
		for _, r := range resp.Reviews {
			reviews = append(reviews, fromAPIReview(r))
		}
		return reviews, nil
	})
}

func (c *Client) ReplyToReview(ctx context.Context, packageName, reviewID, text string) error {
	attrs := pkgAttrs(packageName, attribute.String("play.review_id", reviewID))
	_, err := call(ctx, c, "reviews.reply", c.callTimeout, attrs, func(ctx context.Context) (struct{}, error) {
		_, err := c.svc.Reviews.Reply(packageName, reviewID, &androidpublisher.ReviewsReplyRequest{ReplyText: text}).Context(ctx).Do()
		return struct{}{}, err
	})
	return err
}

func (c *Client) ListSubscriptions(ctx context.Context, packageName string) ([]Subscription, error) {
	return call(ctx, c, "monetization.subscriptions.list", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) ([]Subscription, error) {
		resp, err := c.svc.Monetization.Subscriptions.List(packageName).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		subs := make([]Subscription, 0, len(resp.Subscriptions))
		for _, s := range resp.Subscriptions {
			sub := Subscription{ProductID: s.ProductId}
			for _, bp := range s.BasePlans {
				if bp == nil {
					continue
				}
				sub.BasePlans = append(sub.BasePlans, BasePlan{
					BasePlanID:   bp.BasePlanId,
					State:        bp.State,
					AutoRenewing: bp.AutoRenewingBasePlanType != nil,
				})
			}
			subs = append(subs, sub)
		}
		return subs, nil
	})
}

func (c *Client) GetSubscriptionPurchase(ctx context.Context, packageName, token string) (SubscriptionPurchase, error) {
	return call(ctx, c, "purchases.subscriptionsv2.get", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) (SubscriptionPurchase, error) {
		resp, err := c.svc.Purchases.Subscriptionsv2.Get(packageName, token).Context(ctx).Do()
		if err != nil {
			return SubscriptionPurchase{}, err
		}
		out := SubscriptionPurchase{
			LatestOrderID: resp.LatestOrderId,
			State:         resp.SubscriptionState,
			StartTime:     resp.StartTime,
		}
		for _, item := range resp.LineItems {
			if item == nil {
				continue
			}
			out.ProductIDs = append(out.ProductIDs, item.ProductId)
			if out.ExpiryTime == "" {
				out.ExpiryTime = item.ExpiryTime
			}
		}
		return out, nil
	})
}

func (c *Client) ListVoidedPurchases(ctx context.Context, packageName string, maxResults int64) ([]VoidedPurchase, error) {
	return call(ctx, c, "purchases.voidedpurchases.list", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) ([]VoidedPurchase, error) {
		req := c.svc.Purchases.Voidedpurchases.List(packageName).Context(ctx)
		if maxResults > 0 {
			req = req.MaxResults(maxResults)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, err
		}
		voided := make([]VoidedPurchase, 0, len(resp.VoidedPurchases))
		for _, v := range resp.VoidedPurchases {
			voided = append(voided, VoidedPurchase{
				PurchaseToken: v.PurchaseToken,
				OrderID:       v.OrderId,
				VoidedReason:  v.VoidedReason,
				VoidedSource:  v.VoidedSource,
				VoidedTime:    millisToTime(v.VoidedTimeMillis),
			})
		}
		return voided, nil
	})
}

func (c *Client) ListInAppProducts(ctx context.Context, packageName string) ([]InAppProduct, error) {
	return call(ctx, c, "inappproducts.list", c.callTimeout, pkgAttrs(packageName), func(ctx context.Context) ([]InAppProduct, error) {
		resp, err := c.svc.Inappproducts.List(packageName).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		products := make([]InAppProduct, 0, len(resp.Inappproduct))
		for _, p := range resp.Inappproduct {
			products = append(products, fromAPIProduct(p))
		}
		return products, nil
	})
}

func (c *Client) GetInAppProduct(ctx context.Context, packageName, sku string) (InAppProduct, error) {
	attrs := pkgAttrs(packageName, attribute.String("play.sku", sku))
	return call(ctx, c, "inappproducts.get", c.callTimeout, attrs, func(ctx context.Context) (InAppProduct, error) {
		resp, err := c.svc.Inappproducts.Get(packageName, sku).Context(ctx).Do()
		if err != nil {
			return InAppProduct{}, err
		}
		return fromAPIProduct(resp), nil
	})
}

func (c *Client) GetOrder(ctx context.Context, packageName, orderID string) (Order, error) {
	attrs := pkgAttrs(packageName, attribute.String("play.order_id", orderID))
	return call(ctx, c, "orders.get", c.callTimeout, attrs, func(ctx context.Context) (Order, error) {
		resp, err := c.svc.Orders.Get(packageName, orderID).Context(ctx).Do()
		if err != nil {
			return Order{}, err
		}
		out := Order{
			OrderID:       resp.OrderId,
			State:         resp.State,
			PurchaseToken: resp.PurchaseToken,
			CreateTime:    resp.CreateTime,
		}
		for _, item := range resp.LineItems {
			if item != nil && item.ProductId != "" {
				out.ProductID = item.ProductId
				break
			}
		}
		return out, nil
	})
}

func fromAPITrack(t *androidpublisher.Track) Track {
	if t == nil {
		return Track{}
	}
	out := Track{Name: t.Track, Releases: make([]Release, 0, len(t.Releases))}
	for _, r := range t.Releases {
		if r == nil {
			continue
		}
		rel := Release{
			Name:         r.Name,
			Status:       r.Status,
			VersionCodes: []int64(r.VersionCodes),
		}
		if r.UserFraction != 0 {
			fraction := r.UserFraction
			rel.UserFraction = &fraction
		}
		for _, note := range r.ReleaseNotes {
			if note == nil {
				continue
			}
			rel.ReleaseNotes = append(rel.ReleaseNotes, LocalizedText{Language: note.Language, Text: note.Text})
		}
		out.Releases = append(out.Releases, rel)
	}
	return out
}

func toAPITrack(t Track) *androidpublisher.Track {
	out := &androidpublisher.Track{Track: t.Name, ForceSendFields: []string{"Releases"}}
	for _, r := range t.Releases {
		rel := &androidpublisher.TrackRelease{
			Name:         r.Name,
			Status:       r.Status,
			VersionCodes: googleapi.Int64s(r.VersionCodes),
		}
		if r.UserFraction != nil {
			rel.UserFraction = *r.UserFraction
			rel.ForceSendFields = []string{"UserFraction"}
		}
		for _, note := range r.ReleaseNotes {
			rel.ReleaseNotes = append(rel.ReleaseNotes, &androidpublisher.LocalizedText{Language: note.Language, Text: note.Text})
		}
		out.Releases = append(out.Releases, rel)
	}
	return out
}

func fromAPIListing(l *androidpublisher.Listing) Listing {
	if l == nil {
		return Listing{}
	}
	return Listing{
		Language:         l.Language,
		Title:            l.Title,
		ShortDescription: l.ShortDescription,
		FullDescription:  l.FullDescription,
		Video:            l.Video,
	}
}

func fromAPIReview(r *androidpublisher.Review) Review {
	if r == nil {
		return Review{}
	}
	out := Review{ReviewID: r.ReviewId, AuthorName: r.AuthorName}
	for _, c := range r.Comments {
		if c == nil {
			continue
		}
		var comment Comment
		if u := c.UserComment; u != nil {
			comment.User = &UserComment{
				Text:           u.Text,
				StarRating:     u.StarRating,
				Language:       u.ReviewerLanguage,
				Device:         u.Device,
				AndroidVersion: u.AndroidOsVersion,
				AppVersionCode: u.AppVersionCode,
				AppVersionName: u.AppVersionName,
				LastModified:   timestampToTime(u.LastModified),
			}
		}
		if d := c.DeveloperComment; d != nil {
			comment.Developer = &DeveloperComment{Text: d.Text, LastModified: timestampToTime(d.LastModified)}
		}
		out.Comments = append(out.Comments, comment)
	}
	return out
}

func fromAPIProduct(p *androidpublisher.InAppProduct) InAppProduct {
	if p == nil {
		return InAppProduct{}
	}
	out := InAppProduct{
		SKU:             p.Sku,
		PurchaseType:    p.PurchaseType,
		Status:          p.Status,
		DefaultLanguage: p.DefaultLanguage,
		Listings:        make(map[string]ProductListing, len(p.Listings)),
	}
	for lang, l := range p.Listings {
		out.Listings[lang] = ProductListing{Title: l.Title, Description: l.Description}
	}
	if p.DefaultPrice != nil {
		out.DefaultPrice = &Price{Currency: p.DefaultPrice.Currency, PriceMicros: p.DefaultPrice.PriceMicros}
	}
	return out
}

func timestampToTime(ts *androidpublisher.Timestamp) time.Time {
	if ts == nil {
		return time.Time{}
	}
	return time.Unix(ts.Seconds, ts.Nanos).UTC()
}

func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
