package service

import (
	"fmt"

	"github.com/lusky3/play-store-mcp/internal/play/catalog"
	"github.com/lusky3/play-store-mcp/internal/play/gateway"
	"github.com/lusky3/play-store-mcp/internal/play/publish"
	"github.com/lusky3/play-store-mcp/internal/services/mcp/domain"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type mcpRegistrationModule struct {
	name     string
	register func(mcpRegistrationTarget) error
}

const (
	mcpPublishingToolsModuleName = "publishing-tools"
	mcpListingToolsModuleName    = "listing-tools"
	mcpCatalogToolsModuleName    = "catalog-tools"
	mcpStoreToolsModuleName      = "store-tools"
	mcpValidationToolsModuleName = "validation-tools"
	mcpJournalToolsModuleName    = "journal-tools"
)

type mcpServerRegistrationAdapter struct {
	server *mcp.Server
}

func (r mcpServerRegistrationAdapter) AddTool(tool *mcp.Tool, handler any) error {
	return addMCPTool(r.server, tool, handler)
}

type mcpToolRegistrar struct {
	matches func(any) bool
	add     func(*mcp.Server, *mcp.Tool, any)
}

func newMCPToolRegistrar[I any, O any]() mcpToolRegistrar {
	return mcpToolRegistrar{
		matches: func(handler any) bool {
			_, ok := handler.(mcp.ToolHandlerFor[I, O])
			return ok
		},
		add: func(server *mcp.Server, tool *mcp.Tool, handler any) {
			mcp.AddTool(server, tool, handler.(mcp.ToolHandlerFor[I, O]))
		},
	}
}

var mcpToolRegistrars = []mcpToolRegistrar{
	newMCPToolRegistrar[domain.DeployAppInput, publish.Result](),
	newMCPToolRegistrar[domain.DeployAppMultilangInput, publish.Result](),
	newMCPToolRegistrar[domain.PromoteReleaseInput, publish.Result](),
	newMCPToolRegistrar[domain.HaltReleaseInput, publish.Result](),
	newMCPToolRegistrar[domain.UpdateRolloutInput, publish.Result](),
	newMCPToolRegistrar[domain.BatchDeployInput, publish.BatchResult](),
	newMCPToolRegistrar[domain.UpdateListingInput, publish.Result](),
	newMCPToolRegistrar[domain.UpdateTestersInput, publish.Result](),
	newMCPToolRegistrar[domain.PackageInput, domain.GetReleasesResult](),
	newMCPToolRegistrar[domain.LanguageInput, catalog.AppDetails](),
	newMCPToolRegistrar[domain.LanguageInput, gateway.Listing](),
	newMCPToolRegistrar[domain.PackageInput, domain.ListAllListingsResult](),
	newMCPToolRegistrar[domain.GetTestersInput, catalog.TesterInfo](),
	newMCPToolRegistrar[domain.GetReviewsInput, domain.GetReviewsResult](),
	newMCPToolRegistrar[domain.ReplyToReviewInput, catalog.ReplyResult](),
	newMCPToolRegistrar[domain.PackageInput, domain.ListSubscriptionsResult](),
	newMCPToolRegistrar[domain.GetSubscriptionStatusInput, catalog.SubscriptionStatus](),
	newMCPToolRegistrar[domain.ListVoidedPurchasesInput, domain.ListVoidedPurchasesResult](),
	newMCPToolRegistrar[domain.PackageInput, domain.ListInAppProductsResult](),
	newMCPToolRegistrar[domain.GetInAppProductInput, catalog.InAppProduct](),
	newMCPToolRegistrar[domain.GetOrderInput, catalog.OrderInfo](),
	newMCPToolRegistrar[domain.GetExpansionFileInput, catalog.ExpansionFileInfo](),
	newMCPToolRegistrar[domain.ValidatePackageNameInput, domain.ValidationResult](),
	newMCPToolRegistrar[domain.ValidateTrackInput, domain.ValidationResult](),
	newMCPToolRegistrar[domain.ValidateListingTextInput, domain.ValidationResult](),
	newMCPToolRegistrar[domain.ListRecentOperationsInput, domain.ListRecentOperationsResult](),
}

func addMCPTool(server *mcp.Server, tool *mcp.Tool, handler any) error {
	for _, registrar := range mcpToolRegistrars {
		if registrar.matches(handler) {
			registrar.add(server, tool, handler)
			return nil
		}
	}
	toolName := "<nil>"
	if tool != nil {
		toolName = tool.Name
	}
	return fmt.Errorf("mcp registration adapter does not support handler type %T for tool %q", handler, toolName)
}

func newMCPRegistrationModules(deps Dependencies) []mcpRegistrationModule {
	return []mcpRegistrationModule{
		{
			name: mcpPublishingToolsModuleName,
			register: func(registrar mcpRegistrationTarget) error {
				return registerPublishingTools(registrar, deps.Publisher)
			},
		},
		{
			name: mcpListingToolsModuleName,
			register: func(registrar mcpRegistrationTarget) error {
				return registerListingTools(registrar, deps.Publisher, deps.Catalog)
			},
		},
		{
			name: mcpCatalogToolsModuleName,
			register: func(registrar mcpRegistrationTarget) error {
				return registerCatalogTools(registrar, deps.Catalog)
			},
		},
		{
			name: mcpStoreToolsModuleName,
			register: func(registrar mcpRegistrationTarget) error {
				return registerStoreTools(registrar, deps.Catalog)
			},
		},
		{
			name:     mcpValidationToolsModuleName,
			register: registerValidationTools,
		},
		{
			name: mcpJournalToolsModuleName,
			register: func(registrar mcpRegistrationTarget) error {
				return registerJournalTools(registrar, deps.Journal)
			},
		},
	}
}
