/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// AnnotationReconcileNow, when bumped to a new value, enqueues an immediate
// reconciliation tick. The previous value is remembered in status so that an
// unchanged annotation never re-triggers (see Status.LastReconciledReconcileNow).
const AnnotationReconcileNow = "secretmanager.microscaler.io/reconcile-now"

// SourceKind identifies the external subsystem that resolves the artifact for
// a ManagedConfiguration. The engine never constructs Git protocol messages
// itself; it reads status.artifact from whichever of these the SourceRef points at.
// +kubebuilder:validation:Enum=GitRepository;Application
type SourceKind string

const (
	SourceKindGitRepository SourceKind = "GitRepository"
	SourceKindApplication   SourceKind = "Application"
)

// SourceRef points at the FluxCD GitRepository or ArgoCD Application that
// resolves a Source Artifact for this configuration.
type SourceRef struct {
	// +kubebuilder:validation:Enum=GitRepository;Application
	Kind SourceKind `json:"kind"`
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// ProviderKind discriminates the tagged-variant provider selector.
// +kubebuilder:validation:Enum=gcp;aws;azure
type ProviderKind string

const (
	ProviderGCP   ProviderKind = "gcp"
	ProviderAWS   ProviderKind = "aws"
	ProviderAzure ProviderKind = "azure"
)

// ProviderSelector is a tagged variant: exactly one of GCP, AWS, or Azure must
// be populated, matching Kind. The engine pattern-matches this once at the
// boundary (internal/provider) and carries a typed client for the rest of the run.
type ProviderSelector struct {
	// +kubebuilder:validation:Enum=gcp;aws;azure
	Kind ProviderKind `json:"kind"`

	// +optional
	GCP *GCPProvider `json:"gcp,omitempty"`
	// +optional
	AWS *AWSProvider `json:"aws,omitempty"`
	// +optional
	Azure *AzureProvider `json:"azure,omitempty"`
}

type GCPProvider struct {
	// +kubebuilder:validation:MinLength=1
	Project string `json:"project"`
}

type AWSProvider struct {
	// +kubebuilder:validation:MinLength=1
	Region string `json:"region"`
}

type AzureProvider struct {
	// +kubebuilder:validation:MinLength=1
	VaultURL string `json:"vaultUrl"`
}

// EncryptionKeyRef points at a Kubernetes Secret, in the MC's own namespace,
// holding private key material for one envelope decryption scheme.
type EncryptionKeyRef struct {
	// +kubebuilder:validation:MinLength=1
	SecretName string `json:"secretName"`
	// Key is the data key within the referenced Secret. Defaults to "key".
	// +optional
	Key string `json:"key,omitempty"`
}

// SecretsSelector locates the overlay or raw secret files for one environment.
type SecretsSelector struct {
	// +kubebuilder:validation:MinLength=1
	Environment string `json:"environment"`
	// +kubebuilder:validation:MinLength=1
	OverlayPath string `json:"overlayPath"`

	// +optional
	SchemeAKeyRef *EncryptionKeyRef `json:"schemeAKeyRef,omitempty"`
	// +optional
	SchemeBKeyRef *EncryptionKeyRef `json:"schemeBKeyRef,omitempty"`
}

// ConfigsSelector optionally routes properties-format bundles to a
// config-scoped provider.Provider rather than the secret-scoped one (§4.6):
// for GCP/AWS this targets the same Secret Manager/Secrets Manager API, for
// Azure it targets App Configuration instead of Key Vault.
type ConfigsSelector struct {
	// +optional
	Enabled bool `json:"enabled,omitempty"`
	// +optional
	StoreKind string `json:"storeKind,omitempty"`
	// Endpoint is the config store's own endpoint, required only when
	// provider.kind=azure, since App Configuration lives at a distinct
	// endpoint from the Key Vault used for secrets.
	// +optional
	Endpoint string `json:"endpoint,omitempty"`
}

// NamingPolicy controls how bundle keys become remote names (§3 Owned Remote Name).
type NamingPolicy struct {
	// +optional
	Prefix string `json:"prefix,omitempty"`
	// +optional
	Suffix string `json:"suffix,omitempty"`
}

// Timing controls source polling and reconciliation cadence. Both fields are
// clamped to their normative minimum (§3) and a warning is reported if clamped.
type Timing struct {
	// +kubebuilder:default="60s"
	PullInterval metav1.Duration `json:"pullInterval,omitempty"`
	// +kubebuilder:default="30s"
	ReconcileInterval metav1.Duration `json:"reconcileInterval,omitempty"`
}

// FeatureFlags toggles optional engine behavior.
type FeatureFlags struct {
	// +optional
	DriftDetection bool `json:"driftDetection,omitempty"`
	// +optional
	Suspended bool `json:"suspended,omitempty"`
	// +optional
	GitPullsSuspended bool `json:"gitPullsSuspended,omitempty"`
}

// SecretManagerConfigSpec is the desired state of a ManagedConfiguration.
type SecretManagerConfigSpec struct {
	Source   SourceRef        `json:"source"`
	Provider ProviderSelector `json:"provider"`
	Secrets  SecretsSelector  `json:"secrets"`

	// +optional
	Configs *ConfigsSelector `json:"configs,omitempty"`
	// +optional
	Naming NamingPolicy `json:"naming,omitempty"`
	// +optional
	Timing Timing `json:"timing,omitempty"`
	// +optional
	Features FeatureFlags `json:"features,omitempty"`
}

// Phase is the coarse-grained observable state of a ManagedConfiguration.
// +kubebuilder:validation:Enum=pending;syncing;synced;error;suspended
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseSyncing   Phase = "syncing"
	PhaseSynced    Phase = "synced"
	PhaseError     Phase = "error"
	PhaseSuspended Phase = "suspended"
)

// ConditionType enumerates the condition types this engine ever sets.
type ConditionType string

const ConditionReady ConditionType = "Ready"

// Condition is a single observed condition, matching
// metav1.Condition's (type, status, reason, message, lastTransitionTime) shape
// but kept local so the zero-dep CRD type doesn't need the full meta/v1
// Condition machinery wired through webhooks that aren't part of this engine.
type Condition struct {
	Type               ConditionType          `json:"type"`
	Status             metav1.ConditionStatus `json:"status"`
	Reason             string                 `json:"reason"`
	Message            string                 `json:"message,omitempty"`
	LastTransitionTime metav1.Time            `json:"lastTransitionTime,omitempty"`
}

// SecretManagerConfigStatus is the observed state, owned exclusively by the engine.
type SecretManagerConfigStatus struct {
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// +optional
	Phase Phase `json:"phase,omitempty"`
	// +optional
	Description string `json:"description,omitempty"`
	// +optional
	Conditions []Condition `json:"conditions,omitempty"`
	// +optional
	LastSyncTime *metav1.Time `json:"lastSyncTime,omitempty"`
	// +optional
	SecretsCount int `json:"secretsCount"`
	// +optional
	NextScheduledReconcileTime *metav1.Time `json:"nextScheduledReconcileTime,omitempty"`
	// LastReconciledReconcileNow records the last-seen value of the
	// reconcile-now annotation so an unchanged annotation never re-triggers.
	// +optional
	LastReconciledReconcileNow string `json:"lastReconciledReconcileNow,omitempty"`
	// LastSourceRevision records the last successfully fetched source
	// revision, so a git-pulls-suspended MC can keep reconciling against it
	// without resolving the source object again.
	// +optional
	LastSourceRevision string `json:"lastSourceRevision,omitempty"`
	// FailureCount counts consecutive failed reconciliations since the last
	// success. transient-infra and corrupt-artifact errors consult it to
	// decide whether to surface Ready=False yet (§7); a success resets it.
	// +optional
	FailureCount int `json:"failureCount,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Secrets",type=integer,JSONPath=`.status.secretsCount`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// SecretManagerConfig is the Schema for the ManagedConfiguration custom resource.
type SecretManagerConfig struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   SecretManagerConfigSpec   `json:"spec,omitempty"`
	Status SecretManagerConfigStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// SecretManagerConfigList contains a list of SecretManagerConfig.
type SecretManagerConfigList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []SecretManagerConfig `json:"items"`
}

func init() {
	SchemeBuilder.Register(&SecretManagerConfig{}, &SecretManagerConfigList{})
}
