package engine

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
)

// SourceArtifact is the (url, revision, checksum, size) tuple §6's
// source-reference contract requires every source kind to expose under
// status.artifact.
type SourceArtifact struct {
	URL      string
	Revision string
	Checksum string
	Size     int64
}

// gitRepositoryGVK and applicationGVK are the external collaborators §0
// names: FluxCD's GitRepository and ArgoCD's Application. This engine reads
// only their status subresource and never constructs Git protocol messages.
var (
	gitRepositoryGVK = schema.GroupVersionKind{Group: "source.toolkit.fluxcd.io", Version: "v1", Kind: "GitRepository"}
	applicationGVK   = schema.GroupVersionKind{Group: "argoproj.io", Version: "v1alpha1", Kind: "Application"}
)

// resolveSourceArtifact fetches the referenced source object and reads its
// status.artifact substructure. It returns *SourceNotReadyError if the
// object exists but has not yet populated the artifact fields.
func resolveSourceArtifact(ctx context.Context, c client.Client, ref v1alpha1.SourceRef, fallbackNamespace string) (SourceArtifact, error) {
	var gvk schema.GroupVersionKind
	switch ref.Kind {
	case v1alpha1.SourceKindGitRepository:
		gvk = gitRepositoryGVK
	case v1alpha1.SourceKindApplication:
		gvk = applicationGVK
	default:
		return SourceArtifact{}, &InvalidSpecError{Reason: fmt.Sprintf("unknown source kind %q", ref.Kind)}
	}

	namespace := ref.Namespace
	if namespace == "" {
		namespace = fallbackNamespace
	}

	obj := &unstructured.Unstructured{}
	obj.SetGroupVersionKind(gvk)
	if err := c.Get(ctx, types.NamespacedName{Name: ref.Name, Namespace: namespace}, obj); err != nil {
		return SourceArtifact{}, fmt.Errorf("engine: get source %s/%s: %w", namespace, ref.Name, err)
	}

	url, _, _ := unstructured.NestedString(obj.Object, "status", "artifact", "url")
	revision, _, _ := unstructured.NestedString(obj.Object, "status", "artifact", "revision")
	checksum, _, _ := unstructured.NestedString(obj.Object, "status", "artifact", "checksum")
	size, _, _ := unstructured.NestedInt64(obj.Object, "status", "artifact", "size")

	if url == "" || revision == "" || checksum == "" {
		return SourceArtifact{}, &SourceNotReadyError{Kind: string(ref.Kind), Name: ref.Name, Namespace: namespace}
	}

	return SourceArtifact{URL: url, Revision: revision, Checksum: checksum, Size: size}, nil
}
