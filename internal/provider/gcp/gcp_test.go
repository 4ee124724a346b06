package gcp

import (
	"context"
	"errors"
	"testing"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

type fakeClient struct {
	getSecretFn          func(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	createSecretFn       func(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	accessSecretFn       func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	addSecretVersionFn   func(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	disableSecretVersionFn func(ctx context.Context, req *secretmanagerpb.DisableSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
}

func (f *fakeClient) GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	return f.getSecretFn(ctx, req, opts...)
}
func (f *fakeClient) CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	return f.createSecretFn(ctx, req, opts...)
}
func (f *fakeClient) ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest, opts ...gax.CallOption) *secretmanager.SecretIterator {
	return nil
}
func (f *fakeClient) AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	return f.addSecretVersionFn(ctx, req, opts...)
}
func (f *fakeClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return f.accessSecretFn(ctx, req, opts...)
}
func (f *fakeClient) DisableSecretVersion(ctx context.Context, req *secretmanagerpb.DisableSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	return f.disableSecretVersionFn(ctx, req, opts...)
}

func TestEnsurePresentCreatesSecretWhenMissing(t *testing.T) {
	var created bool
	f := &fakeClient{
		getSecretFn: func(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
			return nil, status.Error(codes.NotFound, "no such secret")
		},
		createSecretFn: func(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
			created = true
			assert.Equal(t, "db-password", req.SecretId)
			return &secretmanagerpb.Secret{Name: "projects/p/secrets/db-password"}, nil
		},
		accessSecretFn: func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return nil, status.Error(codes.NotFound, "no version yet")
		},
		addSecretVersionFn: func(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
			return &secretmanagerpb.SecretVersion{Name: "projects/p/secrets/db-password/versions/1"}, nil
		},
	}
	p := &Provider{Client: f, ProjectID: "p"}
	v, err := p.EnsurePresent(context.Background(), "db-password", []byte("hunter2"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "1", v.Version)
}

func TestEnsurePresentSkipsVersionWhenUnchanged(t *testing.T) {
	var addCalled bool
	f := &fakeClient{
		getSecretFn: func(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error) {
			return &secretmanagerpb.Secret{Name: "projects/p/secrets/db-password"}, nil
		},
		accessSecretFn: func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return &secretmanagerpb.AccessSecretVersionResponse{
				Name:    "projects/p/secrets/db-password/versions/3",
				Payload: &secretmanagerpb.SecretPayload{Data: []byte("hunter2")},
			}, nil
		},
		addSecretVersionFn: func(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
			addCalled = true
			return nil, errors.New("should not be called")
		},
	}
	p := &Provider{Client: f, ProjectID: "p"}
	v, err := p.EnsurePresent(context.Background(), "db-password", []byte("hunter2"))
	require.NoError(t, err)
	assert.False(t, addCalled)
	assert.Equal(t, "3", v.Version)
}

func TestReadLatestTranslatesNotFound(t *testing.T) {
	f := &fakeClient{
		accessSecretFn: func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
			return nil, status.Error(codes.NotFound, "gone")
		},
	}
	p := &Provider{Client: f, ProjectID: "p"}
	_, err := p.ReadLatest(context.Background(), "db-password")
	require.Error(t, err)
	var notFound *provider.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
