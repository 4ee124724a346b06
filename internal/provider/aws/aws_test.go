package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

type fakeClient struct {
	listSecretsFn             func(ctx context.Context, params *awssm.ListSecretsInput, optFns ...func(*awssm.Options)) (*awssm.ListSecretsOutput, error)
	getSecretValueFn          func(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error)
	createSecretFn            func(ctx context.Context, params *awssm.CreateSecretInput, optFns ...func(*awssm.Options)) (*awssm.CreateSecretOutput, error)
	putSecretValueFn          func(ctx context.Context, params *awssm.PutSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.PutSecretValueOutput, error)
	updateSecretVersionStageFn func(ctx context.Context, params *awssm.UpdateSecretVersionStageInput, optFns ...func(*awssm.Options)) (*awssm.UpdateSecretVersionStageOutput, error)
}

func (f *fakeClient) ListSecrets(ctx context.Context, params *awssm.ListSecretsInput, optFns ...func(*awssm.Options)) (*awssm.ListSecretsOutput, error) {
	return f.listSecretsFn(ctx, params, optFns...)
}
func (f *fakeClient) GetSecretValue(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error) {
	return f.getSecretValueFn(ctx, params, optFns...)
}
func (f *fakeClient) CreateSecret(ctx context.Context, params *awssm.CreateSecretInput, optFns ...func(*awssm.Options)) (*awssm.CreateSecretOutput, error) {
	return f.createSecretFn(ctx, params, optFns...)
}
func (f *fakeClient) PutSecretValue(ctx context.Context, params *awssm.PutSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.PutSecretValueOutput, error) {
	return f.putSecretValueFn(ctx, params, optFns...)
}
func (f *fakeClient) UpdateSecretVersionStage(ctx context.Context, params *awssm.UpdateSecretVersionStageInput, optFns ...func(*awssm.Options)) (*awssm.UpdateSecretVersionStageOutput, error) {
	return f.updateSecretVersionStageFn(ctx, params, optFns...)
}

func TestEnsurePresentCreatesWhenMissing(t *testing.T) {
	f := &fakeClient{
		getSecretValueFn: func(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
		},
		createSecretFn: func(ctx context.Context, params *awssm.CreateSecretInput, optFns ...func(*awssm.Options)) (*awssm.CreateSecretOutput, error) {
			return &awssm.CreateSecretOutput{VersionId: aws.String("v1")}, nil
		},
	}
	p := &Provider{Client: f, Region: "us-east-1"}
	v, err := p.EnsurePresent(context.Background(), "app/token", []byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, "v1", v.Version)
}

func TestEnsurePresentSkipsPutWhenUnchanged(t *testing.T) {
	called := false
	f := &fakeClient{
		getSecretValueFn: func(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error) {
			return &awssm.GetSecretValueOutput{SecretBinary: []byte("secret"), VersionId: aws.String("v2")}, nil
		},
		putSecretValueFn: func(ctx context.Context, params *awssm.PutSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.PutSecretValueOutput, error) {
			called = true
			return nil, nil
		},
	}
	p := &Provider{Client: f, Region: "us-east-1"}
	v, err := p.EnsurePresent(context.Background(), "app/token", []byte("secret"))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "v2", v.Version)
}

func TestReadLatestTranslatesNotFound(t *testing.T) {
	f := &fakeClient{
		getSecretValueFn: func(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error) {
			return nil, &types.ResourceNotFoundException{Message: aws.String("gone")}
		},
	}
	p := &Provider{Client: f, Region: "us-east-1"}
	_, err := p.ReadLatest(context.Background(), "app/token")
	require.Error(t, err)
	var notFound *provider.NotFoundError
	require.ErrorAs(t, err, &notFound)
}
