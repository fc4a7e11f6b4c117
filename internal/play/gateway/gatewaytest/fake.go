// Package gatewaytest provides an in-memory gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"sync"

	"github.com/lusky3/play-store-mcp/internal/play/gateway"
)

// Operation names recorded in Fake.Calls and used for failure injection.
const (
	OpInsertEdit     = "edits.insert"
	OpCommitEdit     = "edits.commit"
	OpDeleteEdit     = "edits.delete"
	OpListTracks     = "edits.tracks.list"
	OpGetTrack       = "edits.tracks.get"
	OpUpdateTrack    = "edits.tracks.update"
	OpUpload         = "edits.upload"
	OpGetListing     = "edits.listings.get"
	OpUpdateListing  = "edits.listings.update"
	OpListListings   = "edits.listings.list"
	OpGetTesters     = "edits.testers.get"
	OpUpdateTesters  = "edits.testers.update"
	OpGetDetails     = "edits.details.get"
	OpListReviews    = "reviews.list"
	OpReplyToReview  = "reviews.reply"
	OpListSubs       = "monetization.subscriptions.list"
	OpGetSubPurchase = "purchases.subscriptionsv2.get"
	OpListVoided     = "purchases.voidedpurchases.list"
	OpListProducts   = "inappproducts.list"
	OpGetProduct     = "inappproducts.get"
	OpGetExpansion   = "edits.expansionfiles.get"
	OpGetOrder       = "orders.get"
)

// Call is one recorded gateway call.
type Call struct {
	Op          string
	PackageName string
	EditID      string
}

// Upload is one recorded artifact upload.
type Upload struct {
	EditID      string
	ContentType string
	Body        []byte
}

// Reply is one recorded review reply.
type Reply struct {
	ReviewID string
	Text     string
}

type editState struct {
	packageName string
	tracks      map[string]gateway.Track
	listings    map[string]gateway.Listing
	testers     map[string][]string
}

// Fake is an in-memory gateway. Edit-scoped writes are staged per edit and
// only become visible to new edits after a commit.
type Fake struct {
	mu sync.Mutex

	Tracks        map[string]gateway.Track
	Listings      map[string]gateway.Listing
	Testers       map[string][]string
	Details       gateway.AppDetails
	Reviews       []gateway.Review
	Subscriptions []gateway.Subscription
	Purchases     map[string]gateway.SubscriptionPurchase
	Voided        []gateway.VoidedPurchase
	Products      []gateway.InAppProduct
	Orders        map[string]gateway.Order

	// ExpansionFiles is keyed by ExpansionKey.
	ExpansionFiles map[string]gateway.ExpansionFile

	// NextVersionCode is assigned to the next upload and then incremented.
	NextVersionCode int64

	Calls   []Call
	Uploads []Upload
	Replies []Reply

	nextEdit int
	edits    map[string]*editState
	failures map[string][]error
	always   map[string]error
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Tracks:          map[string]gateway.Track{},
		Listings:        map[string]gateway.Listing{},
		Testers:         map[string][]string{},
		Purchases:       map[string]gateway.SubscriptionPurchase{},
		Orders:          map[string]gateway.Order{},
		ExpansionFiles:  map[string]gateway.ExpansionFile{},
		NextVersionCode: 1,
		edits:           map[string]*editState{},
		failures:        map[string][]error{},
		always:          map[string]error{},
	}
}

// Fail queues errs for op; each call consumes one.
func (f *Fake) Fail(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// FailAlways makes every call to op return err.
func (f *Fake) FailAlways(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.always[op] = err
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation names in call order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		ops = append(ops, c.Op)
	}
	return ops
}

// OpenEdits returns the ids of edits neither committed nor deleted.
func (f *Fake) OpenEdits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Sorted(maps.Keys(f.edits))
}

// Track returns the committed state of name.
func (f *Fake) Track(name string) gateway.Track {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Tracks[name]
}

// Status builds an upstream error with the given HTTP status.
func Status(status int) error {
	return &gateway.APIError{Op: "fake", Status: status, Message: http.StatusText(status)}
}

func (f *Fake) record(op, packageName, editID string) error {
	f.Calls = append(f.Calls, Call{Op: op, PackageName: packageName, EditID: editID})
	if err, ok := f.always[op]; ok {
		return err
	}
	if queued := f.failures[op]; len(queued) > 0 {
		f.failures[op] = queued[1:]
		return queued[0]
	}
	return nil
}

func (f *Fake) edit(packageName, editID string) (*editState, error) {
	e, ok := f.edits[editID]
	if !ok || e.packageName != packageName {
		return nil, &gateway.APIError{Op: "fake", Status: http.StatusNotFound, Message: fmt.Sprintf("edit %s not found", editID)}
	}
	return e, nil
}

func (f *Fake) InsertEdit(_ context.Context, packageName string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpInsertEdit, packageName, ""); err != nil {
		return "", err
	}
	f.nextEdit++
	id := fmt.Sprintf("edit-%d", f.nextEdit)
	f.edits[id] = &editState{
		packageName: packageName,
		tracks:      map[string]gateway.Track{},
		listings:    map[string]gateway.Listing{},
		testers:     map[string][]string{},
	}
	return id, nil
}

func (f *Fake) CommitEdit(_ context.Context, packageName, editID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpCommitEdit, packageName, editID); err != nil {
		return err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return err
	}
	maps.Copy(f.Tracks, e.tracks)
	maps.Copy(f.Listings, e.listings)
	maps.Copy(f.Testers, e.testers)
	delete(f.edits, editID)
	return nil
}

func (f *Fake) DeleteEdit(_ context.Context, packageName, editID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpDeleteEdit, packageName, editID); err != nil {
		return err
	}
	if _, err := f.edit(packageName, editID); err != nil {
		return err
	}
	delete(f.edits, editID)
	return nil
}

func (f *Fake) ListTracks(_ context.Context, packageName, editID string) ([]gateway.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListTracks, packageName, editID); err != nil {
		return nil, err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return nil, err
	}
	merged := maps.Clone(f.Tracks)
	maps.Copy(merged, e.tracks)
	tracks := make([]gateway.Track, 0, len(merged))
	for _, name := range slices.Sorted(maps.Keys(merged)) {
		tracks = append(tracks, cloneTrack(merged[name]))
	}
	return tracks, nil
}

func (f *Fake) GetTrack(_ context.Context, packageName, editID, track string) (gateway.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetTrack, packageName, editID); err != nil {
		return gateway.Track{}, err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return gateway.Track{}, err
	}
	if t, ok := e.tracks[track]; ok {
		return cloneTrack(t), nil
	}
	if t, ok := f.Tracks[track]; ok {
		return cloneTrack(t), nil
	}
	return gateway.Track{Name: track}, nil
}

func (f *Fake) UpdateTrack(_ context.Context, packageName, editID string, track gateway.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpdateTrack, packageName, editID); err != nil {
		return err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return err
	}
	e.tracks[track.Name] = cloneTrack(track)
	return nil
}

func (f *Fake) UploadBinary(_ context.Context, packageName, editID string, media io.Reader, contentType string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpload, packageName, editID); err != nil {
		return 0, err
	}
	if _, err := f.edit(packageName, editID); err != nil {
		return 0, err
	}
	body, err := io.ReadAll(media)
	if err != nil {
		return 0, err
	}
	f.Uploads = append(f.Uploads, Upload{EditID: editID, ContentType: contentType, Body: body})
	code := f.NextVersionCode
	f.NextVersionCode++
	return code, nil
}

func (f *Fake) GetListing(_ context.Context, packageName, editID, language string) (gateway.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetListing, packageName, editID); err != nil {
		return gateway.Listing{}, err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return gateway.Listing{}, err
	}
	if l, ok := e.listings[language]; ok {
		return l, nil
	}
	if l, ok := f.Listings[language]; ok {
		return l, nil
	}
	return gateway.Listing{}, Status(http.StatusNotFound)
}

func (f *Fake) UpdateListing(_ context.Context, packageName, editID string, listing gateway.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpdateListing, packageName, editID); err != nil {
		return err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return err
	}
	e.listings[listing.Language] = listing
	return nil
}

func (f *Fake) ListListings(_ context.Context, packageName, editID string) ([]gateway.Listing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListListings, packageName, editID); err != nil {
		return nil, err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return nil, err
	}
	merged := maps.Clone(f.Listings)
	maps.Copy(merged, e.listings)
	listings := make([]gateway.Listing, 0, len(merged))
	for _, lang := range slices.Sorted(maps.Keys(merged)) {
		listings = append(listings, merged[lang])
	}
	return listings, nil
}

func (f *Fake) GetTesters(_ context.Context, packageName, editID, track string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetTesters, packageName, editID); err != nil {
		return nil, err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return nil, err
	}
	if groups, ok := e.testers[track]; ok {
		return slices.Clone(groups), nil
	}
	if groups, ok := f.Testers[track]; ok {
		return slices.Clone(groups), nil
	}
	return nil, Status(http.StatusNotFound)
}

func (f *Fake) UpdateTesters(_ context.Context, packageName, editID, track string, googleGroups []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpUpdateTesters, packageName, editID); err != nil {
		return err
	}
	e, err := f.edit(packageName, editID)
	if err != nil {
		return err
	}
	e.testers[track] = slices.Clone(googleGroups)
	return nil
}

func (f *Fake) GetDetails(_ context.Context, packageName, editID string) (gateway.AppDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetDetails, packageName, editID); err != nil {
		return gateway.AppDetails{}, err
	}
	if _, err := f.edit(packageName, editID); err != nil {
		return gateway.AppDetails{}, err
	}
	return f.Details, nil
}

func (f *Fake) ListReviews(_ context.Context, packageName string, query gateway.ReviewQuery) ([]gateway.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListReviews, packageName, ""); err != nil {
		return nil, err
	}
	reviews := f.Reviews
	if query.StartIndex > 0 {
		reviews = reviews[min(int(query.StartIndex), len(reviews)):]
	}
	if query.MaxResults > 0 && int(query.MaxResults) < len(reviews) {
		reviews = reviews[:query.MaxResults]
	}
	return slices.Clone(reviews), nil
}

func (f *Fake) ReplyToReview(_ context.Context, packageName, reviewID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpReplyToReview, packageName, ""); err != nil {
		return err
	}
	f.Replies = append(f.Replies, Reply{ReviewID: reviewID, Text: text})
	return nil
}

func (f *Fake) ListSubscriptions(_ context.Context, packageName string) ([]gateway.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListSubs, packageName, ""); err != nil {
		return nil, err
	}
	return slices.Clone(f.Subscriptions), nil
}

func (f *Fake) GetSubscriptionPurchase(_ context.Context, packageName, token string) (gateway.SubscriptionPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetSubPurchase, packageName, ""); err != nil {
		return gateway.SubscriptionPurchase{}, err
	}
	p, ok := f.Purchases[token]
	if !ok {
		return gateway.SubscriptionPurchase{}, Status(http.StatusNotFound)
	}
	return p, nil
}

func (f *Fake) ListVoidedPurchases(_ context.Context, packageName string, maxResults int64) ([]gateway.VoidedPurchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListVoided, packageName, ""); err != nil {
		return nil, err
	}
	voided := f.Voided
	if maxResults > 0 && int(maxResults) < len(voided) {
		voided = voided[:maxResults]
	}
	return slices.Clone(voided), nil
}

func (f *Fake) ListInAppProducts(_ context.Context, packageName string) ([]gateway.InAppProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpListProducts, packageName, ""); err != nil {
		return nil, err
	}
	return slices.Clone(f.Products), nil
}

func (f *Fake) GetInAppProduct(_ context.Context, packageName, sku string) (gateway.InAppProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetProduct, packageName, ""); err != nil {
		return gateway.InAppProduct{}, err
	}
	for _, p := range f.Products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return gateway.InAppProduct{}, Status(http.StatusNotFound)
}

// ExpansionKey keys Fake.ExpansionFiles.
func ExpansionKey(versionCode int64, fileType string) string {
	return fmt.Sprintf("%d/%s", versionCode, fileType)
}

func (f *Fake) GetExpansionFile(_ context.Context, packageName, editID string, versionCode int64, fileType string) (gateway.ExpansionFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetExpansion, packageName, editID); err != nil {
		return gateway.ExpansionFile{}, err
	}
	if _, err := f.edit(packageName, editID); err != nil {
		return gateway.ExpansionFile{}, err
	}
	file, ok := f.ExpansionFiles[ExpansionKey(versionCode, fileType)]
	if !ok {
		return gateway.ExpansionFile{}, Status(http.StatusNotFound)
	}
	return file, nil
}

func (f *Fake) GetOrder(_ context.Context, packageName, orderID string) (gateway.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(OpGetOrder, packageName, ""); err != nil {
		return gateway.Order{}, err
	}
	o, ok := f.Orders[orderID]
	if !ok {
		return gateway.Order{}, Status(http.StatusNotFound)
	}
	return o, nil
}

func cloneTrack(t gateway.Track) gateway.Track {
	out := gateway.Track{Name: t.Name, Releases: make([]gateway.Release, 0, len(t.Releases))}
	for _, r := range t.Releases {
		r.VersionCodes = slices.Clone(r.VersionCodes)
		r.ReleaseNotes = slices.Clone(r.ReleaseNotes)
		if r.UserFraction != nil {
			fraction := *r.UserFraction
			r.UserFraction = &fraction
		}
		out.Releases = append(out.Releases, r)
	}
	return out
}

var _ gateway.Gateway = (*Fake)(nil)
