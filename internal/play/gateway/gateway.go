// Package gateway is the boundary to the Google Play Developer API. It defines
// the operations the publishing core consumes, plain value types for their
// payloads, and an adapter over the androidpublisher client library.
package gateway

import (
	"context"
	"io"
	"slices"
	"time"
)

// Release statuses understood by the publishing API.
const (
	StatusCompleted  = "completed"
	StatusInProgress = "inProgress"
	StatusHalted     = "halted"
	StatusDraft      = "draft"
)

// Upload content types. Bundles go to the bundle endpoint, everything else to
// the APK endpoint.
const (
	ContentTypeBundle = "application/octet-stream"
	ContentTypeAPK    = "application/vnd.android.package-archive"
)

// LocalizedText is one (language, text) pair of release notes.
type LocalizedText struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// Release is one release entry on a track.
type Release struct {
	Name         string          `json:"name,omitempty"`
	Status       string          `json:"status"`
	VersionCodes []int64         `json:"version_codes"`
	UserFraction *float64        `json:"user_fraction,omitempty"`
	ReleaseNotes []LocalizedText `json:"release_notes,omitempty"`
}

// HasVersionCode reports whether the release ships versionCode.
func (r Release) HasVersionCode(versionCode int64) bool {
	return slices.Contains(r.VersionCodes, versionCode)
}

// Track is a distribution channel and its full release set.
type Track struct {
	Name     string    `json:"track"`
	Releases []Release `json:"releases"`
}

// Listing is the store listing of one language.
type Listing struct {
	Language         string `json:"language"`
	Title            string `json:"title"`
	ShortDescription string `json:"short_description"`
	FullDescription  string `json:"full_description"`
	Video            string `json:"video,omitempty"`
}

// AppDetails holds the app-level contact information.
type AppDetails struct {
	DefaultLanguage string
	ContactEmail    string
	ContactPhone    string
	ContactWebsite  string
}

// ReviewQuery pages through reviews.
type ReviewQuery struct {
	MaxResults          int64
	StartIndex          int64
	TranslationLanguage string
}

// Review is a review thread; comments are in upstream order.
type Review struct {
	ReviewID   string
	AuthorName string
	Comments   []Comment
}

// Comment holds either a user comment or a developer reply.
type Comment struct {
	User      *UserComment
	Developer *DeveloperComment
}

type UserComment struct {
	Text           string
	StarRating     int64
	Language       string
	Device         string
	AndroidVersion int64
	AppVersionCode int64
	AppVersionName string
	LastModified   time.Time
}

type DeveloperComment struct {
	Text         string
	LastModified time.Time
}

// Subscription is a subscription product and its base plans.
type Subscription struct {
	ProductID string
	BasePlans []BasePlan
}

type BasePlan struct {
	BasePlanID   string
	State        string
	AutoRenewing bool
}

// SubscriptionPurchase is the v2 purchase state of a subscription token.
type SubscriptionPurchase struct {
	LatestOrderID string
	State         string
	StartTime     string
	ExpiryTime    string
	ProductIDs    []string
}

// Order is a purchase order. ProductID is taken from its first line item.
type Order struct {
	OrderID       string
	State         string
	PurchaseToken string
	ProductID     string
	CreateTime    string
}

// Expansion file types of an APK.
const (
	ExpansionFileMain  = "main"
	ExpansionFilePatch = "patch"
)

// ExpansionFile describes the expansion file attached to an APK. Either
// FileSize or ReferencesVersion is set.
type ExpansionFile struct {
	FileSize          int64
	ReferencesVersion int64
}

type VoidedPurchase struct {
	PurchaseToken string
	OrderID       string
	VoidedReason  int64
	VoidedSource  int64
	VoidedTime    time.Time
}

// InAppProduct is a managed product with its localized listings.
type InAppProduct struct {
	SKU             string
	PurchaseType    string
	Status          string
	DefaultLanguage string
	Listings        map[string]ProductListing
	DefaultPrice    *Price
}

type ProductListing struct {
	Title       string
	Description string
}

type Price struct {
	Currency    string `json:"currency"`
	PriceMicros string `json:"price_micros"`
}

// Edits are the edit-scoped operations. Every call names the edit it acts on.
type Edits interface {
	InsertEdit(ctx context.Context, packageName string) (string, error)
	CommitEdit(ctx context.Context, packageName, editID string) error
	DeleteEdit(ctx context.Context, packageName, editID string) error

	ListTracks(ctx context.Context, packageName, editID string) ([]Track, error)
	GetTrack(ctx context.Context, packageName, editID, track string) (Track, error)
	UpdateTrack(ctx context.Context, packageName, editID string, track Track) error

	// UploadBinary uploads an artifact and returns its assigned version code.
	UploadBinary(ctx context.Context, packageName, editID string, media io.Reader, contentType string) (int64, error)

	GetListing(ctx context.Context, packageName, editID, language string) (Listing, error)
	UpdateListing(ctx context.Context, packageName, editID string, listing Listing) error
	ListListings(ctx context.Context, packageName, editID string) ([]Listing, error)

	GetTesters(ctx context.Context, packageName, editID, track string) ([]string, error)
	UpdateTesters(ctx context.Context, packageName, editID, track string, googleGroups []string) error

	GetDetails(ctx context.Context, packageName, editID string) (AppDetails, error)

	GetExpansionFile(ctx context.Context, packageName, editID string, versionCode int64, fileType string) (ExpansionFile, error)
}

// Store holds the operations that need no edit.
type Store interface {
	ListReviews(ctx context.Context, packageName string, query ReviewQuery) ([]Review, error)
	ReplyToReview(ctx context.Context, packageName, reviewID, text string) error
	ListSubscriptions(ctx context.Context, packageName string) ([]Subscription, error)
	GetSubscriptionPurchase(ctx context.Context, packageName, token string) (SubscriptionPurchase, error)
	ListVoidedPurchases(ctx context.Context, packageName string, maxResults int64) ([]VoidedPurchase, error)
	ListInAppProducts(ctx context.Context, packageName string) ([]InAppProduct, error)
	GetInAppProduct(ctx context.Context, packageName, sku string) (InAppProduct, error)
	GetOrder(ctx context.Context, packageName, orderID string) (Order, error)
}

// Gateway is the full API surface.
type Gateway interface {
	Edits
	Store
}

// Factory resolves the gateway for the calling context.
type Factory interface {
	Gateway(ctx context.Context) (Gateway, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Gateway, error)

// Gateway implements Factory.
func (f FactoryFunc) Gateway(ctx context.Context) (Gateway, error) {
	return f(ctx)
}

// Static returns a Factory that always yields g.
func Static(g Gateway) Factory {
	return FactoryFunc(func(context.Context) (Gateway, error) { return g, nil })
}
