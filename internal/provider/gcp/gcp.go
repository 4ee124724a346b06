// Package gcp implements provider.Provider against Google Cloud Secret Manager.
package gcp

import (
	"context"
	"errors"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/microscaler/secret-manager-controller/internal/paths"
	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// client is the subset of the generated Secret Manager client this package
// calls, so tests can substitute a fake without depending on gRPC.
type client interface {
	GetSecret(ctx context.Context, req *secretmanagerpb.GetSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
	ListSecrets(ctx context.Context, req *secretmanagerpb.ListSecretsRequest, opts ...gax.CallOption) *secretmanager.SecretIterator
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	DisableSecretVersion(ctx context.Context, req *secretmanagerpb.DisableSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
}

// Provider backs provider.Provider with GCP Secret Manager.
type Provider struct {
	Client    client
	ProjectID string
	retry     provider.Retrier
}

// New wraps an already-authenticated Secret Manager client.
func New(c *secretmanager.Client, projectID string) *Provider {
	return &Provider{Client: c, ProjectID: projectID, retry: provider.NewRetrier()}
}

func (p *Provider) Kind() string { return "gcp" }

// parent returns the project resource name ListSecretsRequest expects.
// This is deliberately not routed through paths.Builder: the GCP API's
// "parent" field for a list call is the project itself ("projects/p"), one
// level above the "projects/p/secrets" collection name OpList renders.
func (p *Provider) parent() string {
	return fmt.Sprintf("projects/%s", p.ProjectID)
}

func (p *Provider) secretName(name string) string {
	path, _ := paths.New(paths.GCP, paths.OpSecret).WithProject(p.ProjectID).WithSecret(name).Build()
	return path
}

func (p *Provider) versionName(name, version string) string {
	path, _ := paths.New(paths.GCP, paths.OpVersion).WithProject(p.ProjectID).WithSecret(name).WithVersion(version).Build()
	return path
}

func (p *Provider) ListOwned(ctx context.Context, _ string) ([]provider.SecretRef, error) {
	var refs []provider.SecretRef
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		refs = nil
		it := p.Client.ListSecrets(callCtx, &secretmanagerpb.ListSecretsRequest{
			Parent: p.parent(),
			Filter: fmt.Sprintf("labels.%s=%s", provider.ManagedLabelKey, provider.ManagedLabelValue),
		})
		for {
			secret, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return err
			}
			refs = append(refs, provider.SecretRef{Name: trimSecretName(secret.Name), Labels: secret.Labels})
		}
	})
	if err != nil {
		return nil, fmt.Errorf("gcp: list secrets: %w", err)
	}
	return refs, nil
}

func (p *Provider) ReadLatest(ctx context.Context, name string) (provider.Version, error) {
	var resp *secretmanagerpb.AccessSecretVersionResponse
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		resp, err = p.Client.AccessSecretVersion(callCtx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: p.versionName(name, "latest"),
		})
		return err
	})
	if err != nil {
		return provider.Version{}, translateError(p.Kind(), name, err)
	}
	return provider.Version{Name: name, Version: trimVersionName(resp.Name), Data: resp.Payload.GetData()}, nil
}

func (p *Provider) EnsurePresent(ctx context.Context, name string, data []byte) (provider.Version, error) {
	var secret *secretmanagerpb.Secret
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		secret, err = p.Client.GetSecret(callCtx, &secretmanagerpb.GetSecretRequest{Name: p.secretName(name)})
		return err
	})
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return provider.Version{}, fmt.Errorf("gcp: get secret: %w", err)
		}
		err = p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
			var err error
			secret, err = p.Client.CreateSecret(callCtx, &secretmanagerpb.CreateSecretRequest{
				Parent:   p.parent(),
				SecretId: name,
				Secret: &secretmanagerpb.Secret{
					Labels: map[string]string{provider.ManagedLabelKey: provider.ManagedLabelValue},
					Replication: &secretmanagerpb.Replication{
						Replication: &secretmanagerpb.Replication_Automatic_{Automatic: &secretmanagerpb.Replication_Automatic{}},
					},
				},
			})
			return err
		})
		if err != nil {
			return provider.Version{}, fmt.Errorf("gcp: create secret: %w", err)
		}
	}

	var existing *secretmanagerpb.AccessSecretVersionResponse
	err = p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		existing, err = p.Client.AccessSecretVersion(callCtx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: secret.Name + "/versions/latest",
		})
		return err
	})
	if err == nil && existing.Payload != nil && string(existing.Payload.Data) == string(data) {
		return provider.Version{Name: name, Version: trimVersionName(existing.Name), Data: data}, nil
	}

	var version *secretmanagerpb.SecretVersion
	err = p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		version, err = p.Client.AddSecretVersion(callCtx, &secretmanagerpb.AddSecretVersionRequest{
			Parent:  secret.Name,
			Payload: &secretmanagerpb.SecretPayload{Data: data},
		})
		return err
	})
	if err != nil {
		return provider.Version{}, fmt.Errorf("gcp: add secret version: %w", err)
	}
	return provider.Version{Name: name, Version: trimVersionName(version.Name), Data: data}, nil
}

func (p *Provider) DisableVersion(ctx context.Context, name, version string) error {
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		_, err := p.Client.DisableSecretVersion(callCtx, &secretmanagerpb.DisableSecretVersionRequest{
			Name: p.versionName(name, version),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("gcp: disable version: %w", err)
	}
	return nil
}

func translateError(kind, name string, err error) error {
	if status.Code(err) == codes.NotFound {
		return &provider.NotFoundError{Kind: kind, Name: name}
	}
	if status.Code(err) == codes.PermissionDenied {
		return &provider.UnauthorizedError{Kind: kind, Name: name, Err: err}
	}
	return fmt.Errorf("gcp: %w", err)
}

// isTransient reports whether err is a retryable gRPC condition: the server
// is unavailable, overloaded, or the call exceeded its per-attempt timeout.
func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted, codes.Internal:
		return true
	default:
		return false
	}
}

func trimSecretName(fullName string) string {
	// fullName is "projects/<num>/secrets/<id>"; return <id>.
	for i := len(fullName) - 1; i >= 0; i-- {
		if fullName[i] == '/' {
			return fullName[i+1:]
		}
	}
	return fullName
}

func trimVersionName(fullName string) string {
	return trimSecretName(fullName)
}
