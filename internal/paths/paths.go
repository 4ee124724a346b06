// Package paths is the single source of truth for provider-side resource
// identifiers, mirroring the original controller's crates/paths crate. The
// GCP client builds its secret and version names through PathBuilder; its
// project parent and the latest-version name of a fetched secret are
// formatted directly. The AWS, Azure Key Vault and Azure App Configuration
// clients do not use PathBuilder: they pass names to their SDKs as they are.
package paths

import "fmt"

// Operation is the tagged selector for which identifier shape to build.
type Operation string

const (
	// OpList builds a collection-level resource name (no secret/version).
	OpList Operation = "list"
	// OpSecret builds a secret-level resource name (no version).
	OpSecret Operation = "secret"
	// OpVersion builds a version-level resource name.
	OpVersion Operation = "version"
)

// Provider selects which backend's identifier shape to emit.
type Provider string

const (
	GCP   Provider = "gcp"
	AWS   Provider = "aws"
	Azure Provider = "azure"
)

// MissingComponentError reports a programmer error: a PathBuilder was built
// without all the components its Operation requires.
type MissingComponentError struct {
	Provider  Provider
	Operation Operation
	Component string
}

func (e *MissingComponentError) Error() string {
	return fmt.Sprintf("missing-path-component: %s/%s requires %q", e.Provider, e.Operation, e.Component)
}

// Builder accumulates path components through fluent setters; Build validates
// and renders the final identifier. Builder is a value type — every With*
// call returns a modified copy so callers can branch off a common prefix.
type Builder struct {
	provider  Provider
	operation Operation
	project   string // GCP project, Azure vault host
	location  string // GCP location, AWS region
	parent    string // reserved for nested resource parents
	secret    string
	version   string
}

// New starts a PathBuilder for the given provider and operation.
func New(provider Provider, operation Operation) Builder {
	return Builder{provider: provider, operation: operation}
}

func (b Builder) WithProject(project string) Builder { b.project = project; return b }
func (b Builder) WithLocation(location string) Builder { b.location = location; return b }
func (b Builder) WithParent(parent string) Builder { b.parent = parent; return b }
func (b Builder) WithSecret(secret string) Builder { b.secret = secret; return b }
func (b Builder) WithVersion(version string) Builder { b.version = version; return b }

// Build validates required components for (provider, operation) and renders
// the resource identifier. GCP renders RPC resource names
// (projects/p/secrets/s/versions/v); AWS and Azure render HTTP-ish paths
// since their SDKs take the secret name/URL directly rather than a composed path.
func (b Builder) Build() (string, error) {
	switch b.provider {
	case GCP:
		return b.buildGCP()
	case AWS:
		return b.buildAWS()
	case Azure:
		return b.buildAzure()
	default:
		return "", fmt.Errorf("missing-path-component: unknown provider %q", b.provider)
	}
}

func (b Builder) require(component, value string) error {
	if value == "" {
		return &MissingComponentError{Provider: b.provider, Operation: b.operation, Component: component}
	}
	return nil
}

func (b Builder) buildGCP() (string, error) {
	if err := b.require("project", b.project); err != nil {
		return "", err
	}
	switch b.operation {
	case OpList:
		return fmt.Sprintf("projects/%s/secrets", b.project), nil
	case OpSecret:
		if err := b.require("secret", b.secret); err != nil {
			return "", err
		}
		return fmt.Sprintf("projects/%s/secrets/%s", b.project, b.secret), nil
	case OpVersion:
		if err := b.require("secret", b.secret); err != nil {
			return "", err
		}
		if err := b.require("version", b.version); err != nil {
			return "", err
		}
		return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", b.project, b.secret, b.version), nil
	default:
		return "", &MissingComponentError{Provider: b.provider, Operation: b.operation, Component: "operation"}
	}
}

func (b Builder) buildAWS() (string, error) {
	if err := b.require("location", b.location); err != nil {
		return "", err
	}
	switch b.operation {
	case OpList:
		return fmt.Sprintf("arn:aws:secretsmanager:%s:*:secret", b.location), nil
	case OpSecret, OpVersion:
		if err := b.require("secret", b.secret); err != nil {
			return "", err
		}
		return b.secret, nil
	default:
		return "", &MissingComponentError{Provider: b.provider, Operation: b.operation, Component: "operation"}
	}
}

func (b Builder) buildAzure() (string, error) {
	if err := b.require("project", b.project); err != nil {
		return "", err
	}
	switch b.operation {
	case OpList:
		return b.project, nil
	case OpSecret:
		if err := b.require("secret", b.secret); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/secrets/%s", b.project, b.secret), nil
	case OpVersion:
		if err := b.require("secret", b.secret); err != nil {
			return "", err
		}
		if err := b.require("version", b.version); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/secrets/%s/%s", b.project, b.secret, b.version), nil
	default:
		return "", &MissingComponentError{Provider: b.provider, Operation: b.operation, Component: "operation"}
	}
}
