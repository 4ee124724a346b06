// Package azureconfig implements provider.Provider against Azure App
// Configuration, the config-scoped counterpart to internal/provider/azure's
// Key Vault client (§4.6).
package azureconfig

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azappconfig"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// client is the subset of azappconfig.Client this package calls directly,
// letting tests substitute a fake for everything except paged listing.
type client interface {
	GetSetting(ctx context.Context, key string, options *azappconfig.GetSettingOptions) (azappconfig.GetSettingResponse, error)
	SetSetting(ctx context.Context, key string, value *string, options *azappconfig.SetSettingOptions) (azappconfig.SetSettingResponse, error)
	SetReadOnly(ctx context.Context, key string, isReadOnly bool, options *azappconfig.SetReadOnlyOptions) (azappconfig.SetReadOnlyResponse, error)
}

// Provider backs provider.Provider with Azure App Configuration.
type Provider struct {
	Client   client
	Raw      *azappconfig.Client // only used for NewListSettingsPager; nil in unit tests
	Endpoint string
	retry    provider.Retrier
}

// New wraps an already-authenticated App Configuration client.
func New(c *azappconfig.Client, endpoint string) *Provider {
	return &Provider{Client: c, Raw: c, Endpoint: endpoint, retry: provider.NewRetrier()}
}

func (p *Provider) Kind() string { return "azure-appconfig" }

func (p *Provider) ListOwned(ctx context.Context, _ string) ([]provider.SecretRef, error) {
	if p.Raw == nil {
		return nil, errors.New("azureconfig: provider not configured with a live client")
	}
	var refs []provider.SecretRef
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		refs = nil
		pager := p.Raw.NewListSettingsPager(azappconfig.SettingSelector{}, nil)
		for pager.More() {
			page, err := pager.NextPage(callCtx)
			if err != nil {
				return err
			}
			for _, setting := range page.Settings {
				if setting.Tags[provider.ManagedLabelKey] != provider.ManagedLabelValue {
					continue
				}
				if setting.Key == nil {
					continue
				}
				refs = append(refs, provider.SecretRef{Name: *setting.Key})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("azureconfig: list settings: %w", err)
	}
	return refs, nil
}

func (p *Provider) ReadLatest(ctx context.Context, name string) (provider.Version, error) {
	var resp azappconfig.GetSettingResponse
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		resp, err = p.Client.GetSetting(callCtx, name, nil)
		return err
	})
	if err != nil {
		return provider.Version{}, translateError(p.Kind(), name, err)
	}
	var value string
	if resp.Value != nil {
		value = *resp.Value
	}
	return provider.Version{Name: name, Version: etagVersion(resp.ETag), Data: []byte(value)}, nil
}

func (p *Provider) EnsurePresent(ctx context.Context, name string, data []byte) (provider.Version, error) {
	var existing azappconfig.GetSettingResponse
	getErr := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		existing, err = p.Client.GetSetting(callCtx, name, nil)
		return err
	})
	value := string(data)
	if getErr == nil && existing.Value != nil && *existing.Value == value {
		return provider.Version{Name: name, Version: etagVersion(existing.ETag), Data: data}, nil
	}

	var resp azappconfig.SetSettingResponse
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		resp, err = p.Client.SetSetting(callCtx, name, &value, nil)
		return err
	})
	if err != nil {
		return provider.Version{}, fmt.Errorf("azureconfig: set setting: %w", err)
	}
	return provider.Version{Name: name, Version: etagVersion(resp.ETag), Data: data}, nil
}

// DisableVersion has no direct analogue in App Configuration: settings carry
// no version history to disable. The closest safety equivalent is locking
// the key so it can no longer be overwritten; the version argument is
// unused since App Configuration addresses a setting by key alone.
func (p *Provider) DisableVersion(ctx context.Context, name, _ string) error {
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		_, err := p.Client.SetReadOnly(callCtx, name, true, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("azureconfig: lock setting: %w", err)
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
	return fmt.Errorf("azureconfig: %w", err)
}

// isTransient reports whether err is a retryable App Configuration
// condition: rate limiting or a transient service fault.
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

func etagVersion(etag *azcore.ETag) string {
	if etag == nil {
		return ""
	}
	return string(*etag)
}
