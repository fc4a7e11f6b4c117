package catalog

import (
	"context"
	"time"

	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	apperrors "github.com/lusky3/play-store-mcp/internal/platform/errors"
)

// MaxReviews caps one page of reviews.
const MaxReviews = 100

// SubscriptionStateActive is the purchase state of a renewing subscription.
const SubscriptionStateActive = "SUBSCRIPTION_STATE_ACTIVE"

const defaultProductType = "managedProduct"

// Review is a review thread reduced to its latest user comment and
// developer reply.
type Review struct {
	ReviewID           string `json:"review_id"`
	AuthorName         string `json:"author_name"`
	StarRating         int64  `json:"star_rating"`
	Comment            string `json:"comment"`
	Language           string `json:"language"`
	Device             string `json:"device,omitempty"`
	AndroidVersion     int64  `json:"android_version,omitempty"`
	AppVersionCode     int64  `json:"app_version_code,omitempty"`
	AppVersionName     string `json:"app_version_name,omitempty"`
	LastModified       string `json:"last_modified,omitempty"`
	DeveloperReply     string `json:"developer_reply,omitempty"`
	DeveloperReplyTime string `json:"developer_reply_time,omitempty"`
}

// ReplyResult reports a review reply. Upstream failures are reported here
// instead of as errors.
type ReplyResult struct {
	Success   bool   `json:"success"`
	ReviewID  string `json:"review_id"`
	Message   string `json:"message"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type BasePlan struct {
	BasePlanID   string `json:"base_plan_id"`
	State        string `json:"state,omitempty"`
	AutoRenewing bool   `json:"auto_renewing"`
}

type SubscriptionProduct struct {
	ProductID   string     `json:"product_id"`
	PackageName string     `json:"package_name"`
	BasePlans   []BasePlan `json:"base_plans"`
}

// SubscriptionStatus is the state of one subscription purchase token.
type SubscriptionStatus struct {
	PackageName    string `json:"package_name"`
	SubscriptionID string `json:"subscription_id"`
	PurchaseToken  string `json:"purchase_token"`
	OrderID        string `json:"order_id,omitempty"`
	State          string `json:"state,omitempty"`
	StartTime      string `json:"start_time,omitempty"`
	ExpiryTime     string `json:"expiry_time,omitempty"`
	AutoRenewing   bool   `json:"auto_renewing"`
}

type VoidedPurchase struct {
	PackageName   string `json:"package_name"`
	PurchaseToken string `json:"purchase_token"`
	OrderID       string `json:"order_id,omitempty"`
	VoidedTime    string `json:"voided_time,omitempty"`
	VoidedReason  int64  `json:"voided_reason"`
	VoidedSource  int64  `json:"voided_source"`
}

// OrderInfo is a purchase order.
type OrderInfo struct {
	OrderID       string `json:"order_id"`
	PackageName   string `json:"package_name"`
	ProductID     string `json:"product_id,omitempty"`
	State         string `json:"state,omitempty"`
	PurchaseToken string `json:"purchase_token,omitempty"`
	CreateTime    string `json:"create_time,omitempty"`
}

// InAppProduct is a managed product described in its default language.
type InAppProduct struct {
	SKU             string         `json:"sku"`
	PackageName     string         `json:"package_name"`
	ProductType     string         `json:"product_type"`
	Status          string         `json:"status,omitempty"`
	DefaultLanguage string         `json:"default_language,omitempty"`
	Title           string         `json:"title,omitempty"`
	Description     string         `json:"description,omitempty"`
	DefaultPrice    *gateway.Price `json:"default_price,omitempty"`
}

// Reviews returns one page of reviews. Threads without a user comment are
// skipped.
func (s *Service) Reviews(ctx context.Context, packageName string, maxResults, startIndex int64, translationLanguage string) ([]Review, error) {
	if maxResults <= 0 || maxResults > MaxReviews {
		maxResults = MaxReviews
	}
	s.logger.Info().Str("package_name", packageName).Int64("max_results", maxResults).Msg("fetching reviews")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	threads, err := g.ListReviews(ctx, packageName, gateway.ReviewQuery{
		MaxResults:          maxResults,
		StartIndex:          startIndex,
		TranslationLanguage: translationLanguage,
	})
	if err != nil {
		return nil, readFailed("failed to fetch reviews", err)
	}

	out := make([]Review, 0, len(threads))
	for _, t := range threads {
		if r, ok := reviewFrom(t); ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// reviewFrom keeps the last user comment and the last developer reply of
// the thread.
func reviewFrom(t gateway.Review) (Review, bool) {
	var user *gateway.UserComment
	var dev *gateway.DeveloperComment
	for _, c := range t.Comments {
		if c.User != nil {
			user = c.User
		}
		if c.Developer != nil {
			dev = c.Developer
		}
	}
	if user == nil {
		return Review{}, false
	}

	r := Review{
		ReviewID:       t.ReviewID,
		AuthorName:     t.AuthorName,
		StarRating:     user.StarRating,
		Comment:        user.Text,
		Language:       user.Language,
		Device:         user.Device,
		AndroidVersion: user.AndroidVersion,
		AppVersionCode: user.AppVersionCode,
		AppVersionName: user.AppVersionName,
		LastModified:   formatTime(user.LastModified),
	}
	if r.AuthorName == "" {
		r.AuthorName = "Anonymous"
	}
	if r.Language == "" {
		r.Language = "en"
	}
	if dev != nil {
		r.DeveloperReply = dev.Text
		r.DeveloperReplyTime = formatTime(dev.LastModified)
	}
	return r, true
}

// ReplyToReview posts a reply. Only a failure to resolve a gateway is
// returned as an error.
func (s *Service) ReplyToReview(ctx context.Context, packageName, reviewID, text string) (ReplyResult, error) {
	s.logger.Info().Str("package_name", packageName).Str("review_id", reviewID).Msg("replying to review")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return ReplyResult{}, err
	}
	if err := g.ReplyToReview(ctx, packageName, reviewID, text); err != nil {
		s.logger.Warn().Err(err).Str("review_id", reviewID).Msg("reply failed")
		return ReplyResult{
			ReviewID:  reviewID,
			Message:   "Failed to reply: " + err.Error(),
			ErrorKind: string(apperrors.CodeOf(err)),
		}, nil
	}
	return ReplyResult{Success: true, ReviewID: reviewID, Message: "Reply posted successfully"}, nil
}

// Subscriptions lists the subscription products of the app.
func (s *Service) Subscriptions(ctx context.Context, packageName string) ([]SubscriptionProduct, error) {
	s.logger.Info().Str("package_name", packageName).Msg("listing subscriptions")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := g.ListSubscriptions(ctx, packageName)
	if err != nil {
		return nil, readFailed("failed to list subscriptions", err)
	}
	out := make([]SubscriptionProduct, 0, len(subs))
	for _, sub := range subs {
		plans := make([]BasePlan, 0, len(sub.BasePlans))
		for _, p := range sub.BasePlans {
			plans = append(plans, BasePlan{BasePlanID: p.BasePlanID, State: p.State, AutoRenewing: p.AutoRenewing})
		}
		out = append(out, SubscriptionProduct{ProductID: sub.ProductID, PackageName: packageName, BasePlans: plans})
	}
	return out, nil
}

// SubscriptionPurchase returns the state of a purchase token. The
// subscription id only labels the result; the lookup is by token.
func (s *Service) SubscriptionPurchase(ctx context.Context, packageName, subscriptionID, token string) (SubscriptionStatus, error) {
	s.logger.Info().Str("package_name", packageName).Str("subscription_id", subscriptionID).Msg("getting subscription status")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return SubscriptionStatus{}, err
	}
	p, err := g.GetSubscriptionPurchase(ctx, packageName, token)
	if err != nil {
		return SubscriptionStatus{}, readFailed("failed to get subscription status", err)
	}
	return SubscriptionStatus{
		PackageName:    packageName,
		SubscriptionID: subscriptionID,
		PurchaseToken:  token,
		OrderID:        p.LatestOrderID,
		State:          p.State,
		StartTime:      p.StartTime,
		ExpiryTime:     p.ExpiryTime,
		AutoRenewing:   p.State == SubscriptionStateActive,
	}, nil
}

// VoidedPurchases lists refunded, charged back or revoked purchases.
func (s *Service) VoidedPurchases(ctx context.Context, packageName string, maxResults int64) ([]VoidedPurchase, error) {
	s.logger.Info().Str("package_name", packageName).Int64("max_results", maxResults).Msg("listing voided purchases")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	voided, err := g.ListVoidedPurchases(ctx, packageName, maxResults)
	if err != nil {
		return nil, readFailed("failed to list voided purchases", err)
	}
	out := make([]VoidedPurchase, 0, len(voided))
	for _, v := range voided {
		out = append(out, VoidedPurchase{
			PackageName:   packageName,
			PurchaseToken: v.PurchaseToken,
			OrderID:       v.OrderID,
			VoidedTime:    formatTime(v.VoidedTime),
			VoidedReason:  v.VoidedReason,
			VoidedSource:  v.VoidedSource,
		})
	}
	return out, nil
}

// InAppProducts lists the managed products of the app.
func (s *Service) InAppProducts(ctx context.Context, packageName string) ([]InAppProduct, error) {
	s.logger.Info().Str("package_name", packageName).Msg("listing in-app products")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return nil, err
	}
	products, err := g.ListInAppProducts(ctx, packageName)
	if err != nil {
		return nil, readFailed("failed to list in-app products", err)
	}
	out := make([]InAppProduct, 0, len(products))
	for _, p := range products {
		out = append(out, productFrom(packageName, p))
	}
	return out, nil
}

// InAppProduct returns one managed product by sku.
func (s *Service) InAppProduct(ctx context.Context, packageName, sku string) (InAppProduct, error) {
	s.logger.Info().Str("package_name", packageName).Str("sku", sku).Msg("getting in-app product")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return InAppProduct{}, err
	}
	p, err := g.GetInAppProduct(ctx, packageName, sku)
	if err != nil {
		return InAppProduct{}, readFailed("failed to get in-app product", err)
	}
	return productFrom(packageName, p), nil
}

// Order returns one purchase order.
func (s *Service) Order(ctx context.Context, packageName, orderID string) (OrderInfo, error) {
	s.logger.Info().Str("package_name", packageName).Str("order_id", orderID).Msg("getting order")

	g, err := s.factory.Gateway(ctx)
	if err != nil {
		return OrderInfo{}, err
	}
	o, err := g.GetOrder(ctx, packageName, orderID)
	if err != nil {
		return OrderInfo{}, readFailed("failed to get order", err)
	}
	id := o.OrderID
	if id == "" {
		id = orderID
	}
	return OrderInfo{
		OrderID:       id,
		PackageName:   packageName,
		ProductID:     o.ProductID,
		State:         o.State,
		PurchaseToken: o.PurchaseToken,
		CreateTime:    o.CreateTime,
	}, nil
}

// productFrom describes p with the listing of its default language, or
// en-US when none is set.
func productFrom(packageName string, p gateway.InAppProduct) InAppProduct {
	lang := p.DefaultLanguage
	if lang == "" {
		lang = "en-US"
	}
	listing := p.Listings[lang]
	productType := p.PurchaseType
	if productType == "" {
		productType = defaultProductType
	}
	return InAppProduct{
		SKU:             p.SKU,
		PackageName:     packageName,
		ProductType:     productType,
		Status:          p.Status,
		DefaultLanguage: p.DefaultLanguage,
		Title:           listing.Title,
		Description:     listing.Description,
		DefaultPrice:    p.DefaultPrice,
	}
}

// formatTime renders t as RFC 3339 in UTC, or empty when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
