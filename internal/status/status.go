// Package status mutates a ManagedConfiguration's status subresource:
// condition merging that preserves lastTransitionTime across unchanged
// states, and an Unchanged comparison that lets the caller skip a no-op
// status write.
package status

import (
	"reflect"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
)

// Get returns the condition of the given type, or nil if absent.
func Get(conditions []v1alpha1.Condition, condType v1alpha1.ConditionType) *v1alpha1.Condition {
	for i := range conditions {
		if conditions[i].Type == condType {
			return &conditions[i]
		}
	}
	return nil
}

// Set merges condition into conditions: if an existing condition of the same
// type has the same status, lastTransitionTime is preserved from it; the
// reason and message are always updated. A status change refreshes
// lastTransitionTime to now.
func Set(conditions []v1alpha1.Condition, condition v1alpha1.Condition) []v1alpha1.Condition {
	existing := Get(conditions, condition.Type)
	if existing != nil && existing.Status == condition.Status {
		condition.LastTransitionTime = existing.LastTransitionTime
	} else if condition.LastTransitionTime.IsZero() {
		condition.LastTransitionTime = metav1.Now()
	}

	out := make([]v1alpha1.Condition, 0, len(conditions)+1)
	for _, c := range conditions {
		if c.Type == condition.Type {
			continue
		}
		out = append(out, c)
	}
	return append(out, condition)
}

// Unchanged reports whether the computed status is identical to the one
// last observed on the cluster, including conditions' lastTransitionTime.
// A reconciler should skip the Status().Update() call when this is true,
// since a write would be a no-op that still bumps resourceVersion.
func Unchanged(computed, observed v1alpha1.SecretManagerConfigStatus) bool {
	return reflect.DeepEqual(computed, observed)
}

// ReadyTrue builds the Ready=True condition for a successful reconciliation.
func ReadyTrue(reason, message string) v1alpha1.Condition {
	return v1alpha1.Condition{
		Type:    v1alpha1.ConditionReady,
		Status:  metav1.ConditionTrue,
		Reason:  reason,
		Message: message,
	}
}

// ReadyFalse builds the Ready=False condition for a failed reconciliation.
func ReadyFalse(reason, message string) v1alpha1.Condition {
	return v1alpha1.Condition{
		Type:    v1alpha1.ConditionReady,
		Status:  metav1.ConditionFalse,
		Reason:  reason,
		Message: message,
	}
}
