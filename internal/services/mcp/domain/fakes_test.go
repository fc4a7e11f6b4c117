package domain

import (
	"context"

	"github.com/lusky3/play-store-mcp/internal/play/catalog"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/publish"
	"github.com/lusky3/play-store-mcp/internal/platform/storage/journal"
)

type fakePublisher struct {
	deployReq   publish.DeployRequest
	promoteReq  publish.PromoteRequest
	haltReq     publish.HaltRequest
	rolloutReq  publish.RolloutRequest
	listingReq  publish.ListingRequest
	testersReq  publish.TestersRequest
	batchReq    publish.BatchDeployRequest
	result      publish.Result
	batchResult publish.BatchResult
	err         error
}

func (f *fakePublisher) Deploy(_ context.Context, req publish.DeployRequest) (publish.Result, error) {
	f.deployReq = req
	return f.result, f.err
}

func (f *fakePublisher) Promote(_ context.Context, req publish.PromoteRequest) (publish.Result, error) {
	f.promoteReq = req
	return f.result, f.err
}

func (f *fakePublisher) Halt(_ context.Context, req publish.HaltRequest) (publish.Result, error) {
	f.haltReq = req
	return f.result, f.err
}

func (f *fakePublisher) UpdateRollout(_ context.Context, req publish.RolloutRequest) (publish.Result, error) {
	f.rolloutReq = req
	return f.result, f.err
}

func (f *fakePublisher) UpdateListing(_ context.Context, req publish.ListingRequest) (publish.Result, error) {
	f.listingReq = req
	return f.result, f.err
}

func (f *fakePublisher) UpdateTesters(_ context.Context, req publish.TestersRequest) (publish.Result, error) {
	f.testersReq = req
	return f.result, f.err
}

func (f *fakePublisher) BatchDeploy(_ context.Context, req publish.BatchDeployRequest) (publish.BatchResult, error) {
	f.batchReq = req
	return f.batchResult, f.err
}

type fakeCatalog struct {
	tracks      []catalog.TrackInfo
	details     catalog.AppDetails
	listing     gateway.Listing
	listings    []gateway.Listing
	testers     catalog.TesterInfo
	reviews     []catalog.Review
	reply       catalog.ReplyResult
	subs        []catalog.SubscriptionProduct
	status      catalog.SubscriptionStatus
	voided      []catalog.VoidedPurchase
	products    []catalog.InAppProduct
	product     catalog.InAppProduct
	err         error
	lastPackage string
	lastLang    string
	lastMax     int64

	order        catalog.OrderInfo
	expansion    catalog.ExpansionFileInfo
	lastOrderID  string
	lastVersion  int64
	lastFileType string
}

func (f *fakeCatalog) Releases(_ context.Context, packageName string) ([]catalog.TrackInfo, error) {
	f.lastPackage = packageName
	return f.tracks, f.err
}

func (f *fakeCatalog) AppDetails(_ context.Context, packageName, language string) (catalog.AppDetails, error) {
	f.lastPackage, f.lastLang = packageName, language
	return f.details, f.err
}

func (f *fakeCatalog) Listing(_ context.Context, packageName, language string) (gateway.Listing, error) {
	f.lastPackage, f.lastLang = packageName, language
	return f.listing, f.err
}

func (f *fakeCatalog) Listings(_ context.Context, packageName string) ([]gateway.Listing, error) {
	f.lastPackage = packageName
	return f.listings, f.err
}

func (f *fakeCatalog) Testers(_ context.Context, packageName, _ string) (catalog.TesterInfo, error) {
	f.lastPackage = packageName
	return f.testers, f.err
}

func (f *fakeCatalog) Reviews(_ context.Context, packageName string, maxResults, _ int64, _ string) ([]catalog.Review, error) {
	f.lastPackage, f.lastMax = packageName, maxResults
	return f.reviews, f.err
}

func (f *fakeCatalog) ReplyToReview(_ context.Context, packageName, _, _ string) (catalog.ReplyResult, error) {
	f.lastPackage = packageName
	return f.reply, f.err
}

func (f *fakeCatalog) Subscriptions(_ context.Context, packageName string) ([]catalog.SubscriptionProduct, error) {
	f.lastPackage = packageName
	return f.subs, f.err
}

func (f *fakeCatalog) SubscriptionPurchase(_ context.Context, packageName, _, _ string) (catalog.SubscriptionStatus, error) {
	f.lastPackage = packageName
	return f.status, f.err
}

func (f *fakeCatalog) VoidedPurchases(_ context.Context, packageName string, maxResults int64) ([]catalog.VoidedPurchase, error) {
	f.lastPackage, f.lastMax = packageName, maxResults
	return f.voided, f.err
}

func (f *fakeCatalog) InAppProducts(_ context.Context, packageName string) ([]catalog.InAppProduct, error) {
	f.lastPackage = packageName
	return f.products, f.err
}

func (f *fakeCatalog) InAppProduct(_ context.Context, packageName, _ string) (catalog.InAppProduct, error) {
	f.lastPackage = packageName
	return f.product, f.err
}

func (f *fakeCatalog) Order(_ context.Context, packageName, orderID string) (catalog.OrderInfo, error) {
	f.lastPackage, f.lastOrderID = packageName, orderID
	return f.order, f.err
}

func (f *fakeCatalog) ExpansionFile(_ context.Context, packageName string, versionCode int64, fileType string) (catalog.ExpansionFileInfo, error) {
	f.lastPackage, f.lastVersion, f.lastFileType = packageName, versionCode, fileType
	return f.expansion, f.err
}

type fakeJournal struct {
	entries []journal.Entry
	query   journal.Query
	err     error
}

func (f *fakeJournal) List(_ context.Context, query journal.Query) ([]journal.Entry, error) {
	f.query = query
	return f.entries, f.err
}
