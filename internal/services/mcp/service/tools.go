package service

import (
	"github.com/lusky3/play-store-mcp/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
}

type toolRegistration struct {
	tool    *mcp.Tool
	handler any
}

func registerTools(registrar mcpRegistrationTarget, registrations []toolRegistration) error {
	for _, registration := range registrations {
		if err := registerTool(registrar, registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerTool(registrar mcpRegistrationTarget, tool *mcp.Tool, handler any) error {
	return registrar.AddTool(tool, handler)
}

func registerPublishingTools(registrar mcpRegistrationTarget, publisher domain.Publisher) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.DeployAppTool(), handler: domain.DeployAppHandler(publisher)},
		{tool: domain.DeployAppMultilangTool(), handler: domain.DeployAppMultilangHandler(publisher)},
		{tool: domain.PromoteReleaseTool(), handler: domain.PromoteReleaseHandler(publisher)},
		{tool: domain.HaltReleaseTool(), handler: domain.HaltReleaseHandler(publisher)},
		{tool: domain.UpdateRolloutTool(), handler: domain.UpdateRolloutHandler(publisher)},
		{tool: domain.BatchDeployTool(), handler: domain.BatchDeployHandler(publisher)},
	})
}

func registerListingTools(registrar mcpRegistrationTarget, publisher domain.Publisher, catalog domain.Catalog) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.GetListingTool(), handler: domain.GetListingHandler(catalog)},
		{tool: domain.UpdateListingTool(), handler: domain.UpdateListingHandler(publisher)},
		{tool: domain.ListAllListingsTool(), handler: domain.ListAllListingsHandler(catalog)},
		{tool: domain.GetTestersTool(), handler: domain.GetTestersHandler(catalog)},
		{tool: domain.UpdateTestersTool(), handler: domain.UpdateTestersHandler(publisher)},
		{tool: domain.GetExpansionFileTool(), handler: domain.GetExpansionFileHandler(catalog)},
	})
}

func registerCatalogTools(registrar mcpRegistrationTarget, catalog domain.Catalog) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.GetReleasesTool(), handler: domain.GetReleasesHandler(catalog)},
		{tool: domain.GetAppDetailsTool(), handler: domain.GetAppDetailsHandler(catalog)},
		{tool: domain.GetReviewsTool(), handler: domain.GetReviewsHandler(catalog)},
		{tool: domain.ReplyToReviewTool(), handler: domain.ReplyToReviewHandler(catalog)},
	})
}

func registerStoreTools(registrar mcpRegistrationTarget, catalog domain.Catalog) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.ListSubscriptionsTool(), handler: domain.ListSubscriptionsHandler(catalog)},
		{tool: domain.GetSubscriptionStatusTool(), handler: domain.GetSubscriptionStatusHandler(catalog)},
		{tool: domain.ListVoidedPurchasesTool(), handler: domain.ListVoidedPurchasesHandler(catalog)},
		{tool: domain.ListInAppProductsTool(), handler: domain.ListInAppProductsHandler(catalog)},
		{tool: domain.GetInAppProductTool(), handler: domain.GetInAppProductHandler(catalog)},
		{tool: domain.GetOrderTool(), handler: domain.GetOrderHandler(catalog)},
	})
}

func registerValidationTools(registrar mcpRegistrationTarget) error {
	return registerTools(registrar, []toolRegistration{
		{tool: domain.ValidatePackageNameTool(), handler: domain.ValidatePackageNameHandler()},
		{tool: domain.ValidateTrackTool(), handler: domain.ValidateTrackHandler()},
		{tool: domain.ValidateListingTextTool(), handler: domain.ValidateListingTextHandler()},
	})
}

func registerJournalTools(registrar mcpRegistrationTarget, journal domain.Journal) error {
	return registerTool(registrar, domain.ListRecentOperationsTool(), domain.ListRecentOperationsHandler(journal))
}
