package azure

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

type fakeClient struct {
	getSecretFn func(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	setSecretFn func(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

func (f *fakeClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	return f.getSecretFn(ctx, name, version, options)
}
func (f *fakeClient) SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	return f.setSecretFn(ctx, name, parameters, options)
}
func (f *fakeClient) UpdateSecretProperties(ctx context.Context, name string, version string, parameters azsecrets.UpdateSecretPropertiesParameters, options *azsecrets.UpdateSecretPropertiesOptions) (azsecrets.UpdateSecretPropertiesResponse, error) {
	return azsecrets.UpdateSecretPropertiesResponse{}, nil
}

func TestEnsurePresentSetsSecretWhenValueChanges(t *testing.T) {
	called := false
	f := &fakeClient{
		getSecretFn: func(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
			old := "old-value"
			return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &old}}, nil
		},
		setSecretFn: func(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
			called = true
			assert.Equal(t, "new-value", *parameters.Value)
			return azsecrets.SetSecretResponse{}, nil
		},
	}
	p := &Provider{Client: f, VaultURL: "https://vault.example"}
	_, err := p.EnsurePresent(context.Background(), "db-password", []byte("new-value"))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestEnsurePresentSkipsSetWhenUnchanged(t *testing.T) {
	called := false
	f := &fakeClient{
		getSecretFn: func(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
			v := "same-value"
			return azsecrets.GetSecretResponse{Secret: azsecrets.Secret{Value: &v}}, nil
		},
		setSecretFn: func(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
			called = true
			return azsecrets.SetSecretResponse{}, nil
		},
	}
	p := &Provider{Client: f, VaultURL: "https://vault.example"}
	_, err := p.EnsurePresent(context.Background(), "db-password", []byte("same-value"))
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReadLatestTranslatesNotFound(t *testing.T) {
	f := &fakeClient{
		getSecretFn: func(ctx context.Context, name, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
			return azsecrets.GetSecretResponse{}, &azcore.ResponseError{StatusCode: http.StatusNotFound}
		},
	}
	p := &Provider{Client: f, VaultURL: "https://vault.example"}
	_, err := p.ReadLatest(context.Background(), "missing")
	require.Error(t, err)
	var notFound *provider.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.True(t, errors.As(err, &notFound))
}
