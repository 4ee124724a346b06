package engine

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/aws/aws-sdk-go-v2/config"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
	"github.com/microscaler/secret-manager-controller/internal/provider"
	"github.com/microscaler/secret-manager-controller/internal/provider/aws"
	"github.com/microscaler/secret-manager-controller/internal/provider/azure"
	"github.com/microscaler/secret-manager-controller/internal/provider/azureconfig"
	"github.com/microscaler/secret-manager-controller/internal/provider/gcp"
)

// ProviderFactory builds a provider.Provider for one ManagedConfiguration's
// selector. The default implementation constructs a fresh SDK client per
// call using ambient credentials; tests supply a stub instead.
type ProviderFactory func(ctx context.Context, sel v1alpha1.ProviderSelector) (provider.Provider, error)

// ConfigProviderFactory builds the config-scoped provider.Provider §4.6 routes
// properties-format bundles through, distinct from the secret-scoped client
// ProviderFactory builds.
type ConfigProviderFactory func(ctx context.Context, sel v1alpha1.ProviderSelector, cfg *v1alpha1.ConfigsSelector) (provider.Provider, error)

// DefaultProviderFactory resolves sel against the concrete cloud SDKs using
// each platform's default credential chain.
func DefaultProviderFactory(ctx context.Context, sel v1alpha1.ProviderSelector) (provider.Provider, error) {
	switch sel.Kind {
	case v1alpha1.ProviderGCP:
		if sel.GCP == nil {
			return nil, &InvalidSpecError{Reason: "provider.kind=gcp requires provider.gcp"}
		}
		client, err := secretmanager.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("engine: new gcp client: %w", err)
		}
		return gcp.New(client, sel.GCP.Project), nil

	case v1alpha1.ProviderAWS:
		if sel.AWS == nil {
			return nil, &InvalidSpecError{Reason: "provider.kind=aws requires provider.aws"}
		}
		cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(sel.AWS.Region))
		if err != nil {
			return nil, fmt.Errorf("engine: load aws config: %w", err)
		}
		return aws.New(awssm.NewFromConfig(cfg), sel.AWS.Region), nil

	case v1alpha1.ProviderAzure:
		if sel.Azure == nil {
			return nil, &InvalidSpecError{Reason: "provider.kind=azure requires provider.azure"}
		}
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("engine: new azure credential: %w", err)
		}
		client, err := azsecrets.NewClient(sel.Azure.VaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("engine: new azure client: %w", err)
		}
		return azure.New(client, sel.Azure.VaultURL), nil

	default:
		return nil, &InvalidSpecError{Reason: fmt.Sprintf("unknown provider kind %q", sel.Kind)}
	}
}

// DefaultConfigProviderFactory resolves the config-scoped provider.Provider §4.6
// commits to: GCP and AWS route config bundles through the same Secret
// Manager/Secrets Manager API the secret bundle uses (the API surface is
// identical, only the published names differ), Azure routes them to App
// Configuration instead of Key Vault.
func DefaultConfigProviderFactory(ctx context.Context, sel v1alpha1.ProviderSelector, cfg *v1alpha1.ConfigsSelector) (provider.Provider, error) {
	switch sel.Kind {
	case v1alpha1.ProviderGCP, v1alpha1.ProviderAWS:
		return DefaultProviderFactory(ctx, sel)

	case v1alpha1.ProviderAzure:
		if cfg == nil || cfg.Endpoint == "" {
			return nil, &InvalidSpecError{Reason: "configs.enabled with provider.kind=azure requires configs.endpoint"}
		}
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("engine: new azure credential: %w", err)
		}
		client, err := azappconfig.NewClient(cfg.Endpoint, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("engine: new azure app configuration client: %w", err)
		}
		return azureconfig.New(client, cfg.Endpoint), nil

	default:
		return nil, &InvalidSpecError{Reason: fmt.Sprintf("unknown provider kind %q", sel.Kind)}
	}
}
