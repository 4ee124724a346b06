// Package aws implements provider.Provider against AWS Secrets Manager.
package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssm "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"

	"github.com/microscaler/secret-manager-controller/internal/provider"
)

// client is the subset of the SecretsManager SDK this package calls.
type client interface {
	ListSecrets(ctx context.Context, params *awssm.ListSecretsInput, optFns ...func(*awssm.Options)) (*awssm.ListSecretsOutput, error)
	GetSecretValue(ctx context.Context, params *awssm.GetSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *awssm.CreateSecretInput, optFns ...func(*awssm.Options)) (*awssm.CreateSecretOutput, error)
	PutSecretValue(ctx context.Context, params *awssm.PutSecretValueInput, optFns ...func(*awssm.Options)) (*awssm.PutSecretValueOutput, error)
	UpdateSecretVersionStage(ctx context.Context, params *awssm.UpdateSecretVersionStageInput, optFns ...func(*awssm.Options)) (*awssm.UpdateSecretVersionStageOutput, error)
}

// Provider backs provider.Provider with AWS Secrets Manager.
type Provider struct {
	Client client
	Region string
	retry  provider.Retrier
}

// New wraps an already-authenticated Secrets Manager client.
func New(c *awssm.Client, region string) *Provider {
	return &Provider{Client: c, Region: region, retry: provider.NewRetrier()}
}

func (p *Provider) Kind() string { return "aws" }

func (p *Provider) ListOwned(ctx context.Context, _ string) ([]provider.SecretRef, error) {
	var refs []provider.SecretRef
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		refs = nil
		var nextToken *string
		for {
			out, err := p.Client.ListSecrets(callCtx, &awssm.ListSecretsInput{
				NextToken: nextToken,
				Filters: []types.Filter{
					{Key: types.FilterNameStringTypeTagKey, Values: []string{provider.ManagedLabelKey}},
					{Key: types.FilterNameStringTypeTagValue, Values: []string{provider.ManagedLabelValue}},
				},
			})
			if err != nil {
				return err
			}
			for _, s := range out.SecretList {
				refs = append(refs, provider.SecretRef{Name: aws.ToString(s.Name)})
			}
			if out.NextToken == nil {
				return nil
			}
			nextToken = out.NextToken
		}
	})
	if err != nil {
		return nil, fmt.Errorf("aws: list secrets: %w", err)
	}
	return refs, nil
}

func (p *Provider) ReadLatest(ctx context.Context, name string) (provider.Version, error) {
	var out *awssm.GetSecretValueOutput
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		out, err = p.Client.GetSecretValue(callCtx, &awssm.GetSecretValueInput{SecretId: aws.String(name)})
		return err
	})
	if err != nil {
		return provider.Version{}, translateError(p.Kind(), name, err)
	}
	data := out.SecretBinary
	if data == nil {
		data = []byte(aws.ToString(out.SecretString))
	}
	return provider.Version{Name: name, Version: aws.ToString(out.VersionId), Data: data}, nil
}

func (p *Provider) EnsurePresent(ctx context.Context, name string, data []byte) (provider.Version, error) {
	var existing *awssm.GetSecretValueOutput
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		existing, err = p.Client.GetSecretValue(callCtx, &awssm.GetSecretValueInput{SecretId: aws.String(name)})
		return err
	})
	if err != nil {
		var apiErr *types.ResourceNotFoundException
		if !errors.As(err, &apiErr) {
			return provider.Version{}, fmt.Errorf("aws: get secret value: %w", err)
		}
		var createOut *awssm.CreateSecretOutput
		err = p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
			var err error
			createOut, err = p.Client.CreateSecret(callCtx, &awssm.CreateSecretInput{
				Name:         aws.String(name),
				SecretBinary: data,
				Tags: []types.Tag{
					{Key: aws.String(provider.ManagedLabelKey), Value: aws.String(provider.ManagedLabelValue)},
				},
			})
			return err
		})
		if err != nil {
			return provider.Version{}, fmt.Errorf("aws: create secret: %w", err)
		}
		return provider.Version{Name: name, Version: aws.ToString(createOut.VersionId), Data: data}, nil
	}

	existingData := existing.SecretBinary
	if existingData == nil {
		existingData = []byte(aws.ToString(existing.SecretString))
	}
	if string(existingData) == string(data) {
		return provider.Version{Name: name, Version: aws.ToString(existing.VersionId), Data: data}, nil
	}

	var putOut *awssm.PutSecretValueOutput
	err = p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		var err error
		putOut, err = p.Client.PutSecretValue(callCtx, &awssm.PutSecretValueInput{
			SecretId:     aws.String(name),
			SecretBinary: data,
		})
		return err
	})
	if err != nil {
		return provider.Version{}, fmt.Errorf("aws: put secret value: %w", err)
	}
	return provider.Version{Name: name, Version: aws.ToString(putOut.VersionId), Data: data}, nil
}

func (p *Provider) DisableVersion(ctx context.Context, name, version string) error {
	err := p.retry.Do(ctx, isTransient, func(callCtx context.Context) error {
		_, err := p.Client.UpdateSecretVersionStage(callCtx, &awssm.UpdateSecretVersionStageInput{
			SecretId:            aws.String(name),
			VersionStage:        aws.String("AWSCURRENT"),
			RemoveFromVersionId: aws.String(version),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("aws: disable version: %w", err)
	}
	return nil
}

func translateError(kind, name string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return &provider.NotFoundError{Kind: kind, Name: name}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return &provider.UnauthorizedError{Kind: kind, Name: name, Err: err}
	}
	return fmt.Errorf("aws: %w", err)
}

// isTransient reports whether err is a retryable AWS condition: throttling,
// a transient service-side fault, or the call exceeded its per-attempt
// timeout. An error with no modeled API code (a network-level failure) is
// treated as transient too, since it carries no signal that retrying won't help.
func isTransient(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded",
			"ServiceUnavailableException", "InternalServiceError", "InternalFailure":
			return true
		default:
			return false
		}
	}
	return true
}
