// Package azure implements provider.Provider against Azure Key Vault secrets.
package azure

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// client is the subset of azsecrets.Client this package calls directly,
// letting tests substitute a fake for everything except paged listing.
type client interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
	UpdateSecretProperties(ctx context.Context, name string, version string, parameters azsecrets.UpdateSecretPropertiesParameters, options *azsecrets.UpdateSecretPropertiesOptions) (azsecrets.UpdateSecretPropertiesResponse, error)
}

// Provider backs provider.Provider with Azure Key Vault.
type Provider struct {
	Client   client
	Raw      *azsecrets.Client // only used for NewListSecretPropertiesPager; nil in unit tests
	VaultURL string
	retry    provider.Retrier
}

// New wraps an already-authenticated Key Vault secrets client.
func New(c *azsecrets.Client, vaultURL string) *Provider {
	return &Provider{Client: c, Raw: c, VaultURL: vaultURL, retry: provider.NewRetrier()}
}

func (p *Provider) Kind() string { return "azure" }

func (p *Provider) ListOwned(ctx context.Context, _ string) ([]provider.SecretRef, error) {
	if p.Raw == nil {
		return nil, errors.New("azure: provider not configured with a live client")
	}
	var refs []provider.SecretRef
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		refs = nil
		pager := p.Raw.NewListSecretPropertiesPager(nil)
		for pager.More() {
			page, err := pager.NextPage(callCtx)
			if err != nil {
				return err
			}
			for _, props := range page.Value {
				if props.Tags[provider.ManagedLabelKey] == nil || *props.Tags[provider.ManagedLabelKey] != provider.ManagedLabelValue {
					continue
				}
				refs = append(refs, provider.SecretRef{Name: props.ID.Name()})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("azure: list secrets: %w", err)
	}
	return refs, nil
}

func (p *Provider) ReadLatest(ctx context.Context, name string) (provider.Version, error) {
	var resp azsecrets.GetSecretResponse
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		resp, err = p.Client.GetSecret(callCtx, name, "", nil)
		return err
	})
	if err != nil {
		return provider.Version{}, translateError(p.Kind(), name, err)
	}
	version := ""
	if resp.ID != nil {
		version = resp.ID.Version()
	}
	var value string
	if resp.Value != nil {
		value = *resp.Value
	}
	return provider.Version{Name: name, Version: version, Data: []byte(value)}, nil
}

func (p *Provider) EnsurePresent(ctx context.Context, name string, data []byte) (provider.Version, error) {
	var existing azsecrets.GetSecretResponse
	getErr := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		existing, err = p.Client.GetSecret(callCtx, name, "", nil)
		return err
	})
	value := string(data)
	if getErr == nil && existing.Value != nil && *existing.Value == value {
		version := ""
		if existing.ID != nil {
			version = existing.ID.Version()
		}
		return provider.Version{Name: name, Version: version, Data: data}, nil
	}

	var resp azsecrets.SetSecretResponse
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		resp, err = p.Client.SetSecret(callCtx, name, azsecrets.SetSecretParameters{
			Value: &value,
			Tags:  map[string]*string{provider.ManagedLabelKey: strPtr(provider.ManagedLabelValue)},
		}, nil)
		return err
	})
	if err != nil {
		return provider.Version{}, fmt.Errorf("azure: set secret: %w", err)
	}
	version := ""
	if resp.ID != nil {
		version = resp.ID.Version()
	}
	return provider.Version{Name: name, Version: version, Data: data}, nil
}

func (p *Provider) DisableVersion(ctx context.Context, name, version string) error {
	disabled := false
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		_, err := p.Client.UpdateSecretProperties(callCtx, name, version, azsecrets.UpdateSecretPropertiesParameters{
			SecretAttributes: &azsecrets.SecretAttributes{Enabled: &disabled},
		}, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("azure: disable version: %w", err)
	}
	return nil
}

func translateError(kind, name string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode == 404 {
		return &provider.NotFoundError{Kind: kind, Name: name}
	}
	if errors.As(err, &respErr) && respErr.StatusCode == 403 {
		return &provider.UnauthorizedError{Kind: kind, Name: name, Err: err}
	}
	return fmt.Errorf("azure: %w", err)
}

// isTransient reports whether err is a retryable Azure condition: rate
// limiting or a transient service fault. An error with no modeled
// azcore.ResponseError (a network-level failure, or the per-attempt timeout
// firing) is treated as transient too.
func isTransient(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }
