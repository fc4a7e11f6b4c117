package domain

import (
	"context"
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/catalog"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetReviewsInput represents the MCP tool input for reading reviews.
type GetReviewsInput struct {
	PackageName         string `json:"package_name" jsonschema:"app package name"`
	MaxResults          int64  `json:"max_results,omitempty" jsonschema:"maximum reviews to return (default 50, max 100)"`
	StartIndex          int64  `json:"start_index,omitempty" jsonschema:"index of the first review to return"`
	TranslationLanguage string `json:"translation_language,omitempty" jsonschema:"optional language to translate reviews to"`
}

// GetReviewsResult represents the MCP tool output for reviews.
type GetReviewsResult struct {
	PackageName string           `json:"package_name" jsonschema:"app package name"`
	Reviews     []catalog.Review `json:"reviews" jsonschema:"reviews with rating, comment and latest developer reply"`
}

// GetReviewsTool defines the MCP tool schema for reading reviews.
func GetReviewsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_reviews",
		Description: "Returns recent user reviews with ratings, comments and the latest developer reply.",
	}
}

// GetReviewsHandler executes a reviews read.
func GetReviewsHandler(c Catalog) mcp.ToolHandlerFor[GetReviewsInput, GetReviewsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetReviewsInput) (*mcp.CallToolResult, GetReviewsResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, GetReviewsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultReviewResults
		}
		reviews, err := c.Reviews(runCtx, input.PackageName, min(maxResults, catalog.MaxReviews), input.StartIndex, input.TranslationLanguage)
		if err != nil {
			return nil, GetReviewsResult{}, err
		}
		if reviews == nil {
			reviews = []catalog.Review{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			GetReviewsResult{PackageName: input.PackageName, Reviews: reviews}, nil
	}
}

// ReplyToReviewInput represents the MCP tool input for replying to a review.
type ReplyToReviewInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	ReviewID    string `json:"review_id" jsonschema:"review identifier from get_reviews"`
	ReplyText   string `json:"reply_text" jsonschema:"reply text, visible to the reviewer"`
}

// ReplyToReviewTool defines the MCP tool schema for replying to a review.
func ReplyToReviewTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "reply_to_review",
		Description: "Posts a public developer reply to a user review.",
	}
}

// ReplyToReviewHandler executes a review reply.
func ReplyToReviewHandler(c Catalog) mcp.ToolHandlerFor[ReplyToReviewInput, catalog.ReplyResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ReplyToReviewInput) (*mcp.CallToolResult, catalog.ReplyResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.ReplyResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		res, err := c.ReplyToReview(runCtx, input.PackageName, input.ReviewID, input.ReplyText)
		if err != nil {
			return nil, catalog.ReplyResult{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), res, nil
	}
}

// ListSubscriptionsResult represents the MCP tool output for subscriptions.
type ListSubscriptionsResult struct {
	PackageName   string                        `json:"package_name" jsonschema:"app package name"`
	Subscriptions []catalog.SubscriptionProduct `json:"subscriptions" jsonschema:"subscription products with base plans"`
}

// ListSubscriptionsTool defines the MCP tool schema for listing subscriptions.
func ListSubscriptionsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_subscriptions",
		Description: "Lists the subscription products of an app with their base plans.",
	}
}

// ListSubscriptionsHandler executes a subscriptions read.
func ListSubscriptionsHandler(c Catalog) mcp.ToolHandlerFor[PackageInput, ListSubscriptionsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PackageInput) (*mcp.CallToolResult, ListSubscriptionsResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ListSubscriptionsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		subs, err := c.Subscriptions(runCtx, input.PackageName)
		if err != nil {
			return nil, ListSubscriptionsResult{}, err
		}
		if subs == nil {
			subs = []catalog.SubscriptionProduct{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			ListSubscriptionsResult{PackageName: input.PackageName, Subscriptions: subs}, nil
	}
}

// GetSubscriptionStatusInput represents the MCP tool input for a
// subscription purchase lookup.
type GetSubscriptionStatusInput struct {
	PackageName    string `json:"package_name" jsonschema:"app package name"`
	SubscriptionID string `json:"subscription_id" jsonschema:"subscription product id"`
	PurchaseToken  string `json:"purchase_token" jsonschema:"purchase token from the client"`
}

// GetSubscriptionStatusTool defines the MCP tool schema for a subscription
// purchase lookup.
func GetSubscriptionStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_subscription_status",
		Description: "Returns the state, expiry and renewal status of a subscription purchase.",
	}
}

// GetSubscriptionStatusHandler executes a subscription purchase lookup.
func GetSubscriptionStatusHandler(c Catalog) mcp.ToolHandlerFor[GetSubscriptionStatusInput, catalog.SubscriptionStatus] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetSubscriptionStatusInput) (*mcp.CallToolResult, catalog.SubscriptionStatus, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.SubscriptionStatus{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		status, err := c.SubscriptionPurchase(runCtx, input.PackageName, input.SubscriptionID, input.PurchaseToken)
		if err != nil {
			return nil, catalog.SubscriptionStatus{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), status, nil
	}
}

// ListVoidedPurchasesInput represents the MCP tool input for voided purchases.
type ListVoidedPurchasesInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	MaxResults  int64  `json:"max_results,omitempty" jsonschema:"maximum purchases to return (default 100)"`
}

// ListVoidedPurchasesResult represents the MCP tool output for voided purchases.
type ListVoidedPurchasesResult struct {
	PackageName string                   `json:"package_name" jsonschema:"app package name"`
	Purchases   []catalog.VoidedPurchase `json:"voided_purchases" jsonschema:"refunded, charged back or revoked purchases"`
}

// ListVoidedPurchasesTool defines the MCP tool schema for voided purchases.
func ListVoidedPurchasesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_voided_purchases",
		Description: "Lists purchases that were refunded, charged back or revoked.",
	}
}

// ListVoidedPurchasesHandler executes a voided purchases read.
func ListVoidedPurchasesHandler(c Catalog) mcp.ToolHandlerFor[ListVoidedPurchasesInput, ListVoidedPurchasesResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ListVoidedPurchasesInput) (*mcp.CallToolResult, ListVoidedPurchasesResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ListVoidedPurchasesResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = defaultVoidedResults
		}
		purchases, err := c.VoidedPurchases(runCtx, input.PackageName, maxResults)
		if err != nil {
			return nil, ListVoidedPurchasesResult{}, err
		}
		if purchases == nil {
			purchases = []catalog.VoidedPurchase{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			ListVoidedPurchasesResult{PackageName: input.PackageName, Purchases: purchases}, nil
	}
}

// ListInAppProductsResult represents the MCP tool output for in-app products.
type ListInAppProductsResult struct {
	PackageName string                 `json:"package_name" jsonschema:"app package name"`
	Products    []catalog.InAppProduct `json:"products" jsonschema:"managed in-app products"`
}

// ListInAppProductsTool defines the MCP tool schema for in-app products.
func ListInAppProductsTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_in_app_products",
		Description: "Lists the managed in-app products of an app.",
	}
}

// ListInAppProductsHandler executes an in-app products read.
func ListInAppProductsHandler(c Catalog) mcp.ToolHandlerFor[PackageInput, ListInAppProductsResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input PackageInput) (*mcp.CallToolResult, ListInAppProductsResult, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, ListInAppProductsResult{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		products, err := c.InAppProducts(runCtx, input.PackageName)
		if err != nil {
			return nil, ListInAppProductsResult{}, err
		}
		if products == nil {
			products = []catalog.InAppProduct{}
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}),
			ListInAppProductsResult{PackageName: input.PackageName, Products: products}, nil
	}
}

// GetInAppProductInput represents the MCP tool input for one in-app product.
type GetInAppProductInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	SKU         string `json:"sku" jsonschema:"product sku"`
}

// GetInAppProductTool defines the MCP tool schema for one in-app product.
func GetInAppProductTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_in_app_product",
		Description: "Returns one managed in-app product by sku.",
	}
}

// GetInAppProductHandler executes an in-app product read.
func GetInAppProductHandler(c Catalog) mcp.ToolHandlerFor[GetInAppProductInput, catalog.InAppProduct] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetInAppProductInput) (*mcp.CallToolResult, catalog.InAppProduct, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.InAppProduct{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		product, err := c.InAppProduct(runCtx, input.PackageName, input.SKU)
		if err != nil {
			return nil, catalog.InAppProduct{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), product, nil
	}
}

// GetOrderInput represents the MCP tool input for one order.
type GetOrderInput struct {
	PackageName string `json:"package_name" jsonschema:"app package name"`
	OrderID     string `json:"order_id" jsonschema:"order id, e.g. GPA.1234-5678-9012-34567"`
}

// GetOrderTool defines the MCP tool schema for order lookups.
func GetOrderTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "get_order",
		Description: "Returns an order with its product, state and purchase token.",
	}
}

// GetOrderHandler executes an order read.
func GetOrderHandler(c Catalog) mcp.ToolHandlerFor[GetOrderInput, catalog.OrderInfo] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input GetOrderInput) (*mcp.CallToolResult, catalog.OrderInfo, error) {
		invocationID, err := NewInvocationID()
		if err != nil {
			return nil, catalog.OrderInfo{}, fmt.Errorf("generate invocation id: %w", err)
		}

		runCtx, cancel := context.WithTimeout(ctx, readCallTimeout)
		defer cancel()

		order, err := c.Order(runCtx, input.PackageName, input.OrderID)
		if err != nil {
			return nil, catalog.OrderInfo{}, err
		}
		return CallToolResultWithMetadata(ToolCallMetadata{InvocationID: invocationID}), order, nil
	}
}
