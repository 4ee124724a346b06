package engine

import (
	"context"

	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
)

// sourceRefIndexKey indexes ManagedConfigurations by their source object's
// name. A future watch on GitRepository/Application objects would use this
// to map a source change back to the MCs that reference it without
// listing every MC in the namespace; for now the reconcile-interval poll
// is what drives re-fetching, and the index keeps that mapping ready.
const sourceRefIndexKey = ".spec.source.name"

// SetupWithManager wires the Reconciler into mgr.
func (r *Reconciler) SetupWithManager(mgr ctrl.Manager, opts controller.Options) error {
	if err := mgr.GetFieldIndexer().IndexField(context.Background(), &v1alpha1.SecretManagerConfig{}, sourceRefIndexKey, func(obj client.Object) []string {
		mc := obj.(*v1alpha1.SecretManagerConfig)
		return []string{mc.Spec.Source.Name}
	}); err != nil {
		return err
	}

	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(opts).
		For(&v1alpha1.SecretManagerConfig{}).
		Complete(r)
}
