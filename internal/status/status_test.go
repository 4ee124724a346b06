package status_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/microscaler/secret-manager-controller/api/v1alpha1"
	"github.com/microscaler/secret-manager-controller/internal/status"
)

func TestSetPreservesLastTransitionTimeOnUnchangedStatus(t *testing.T) {
	old := metav1.NewTime(time.Now().Add(-time.Hour))
	conditions := []v1alpha1.Condition{{
		Type:               v1alpha1.ConditionReady,
		Status:             metav1.ConditionTrue,
		Reason:             "Synced",
		LastTransitionTime: old,
	}}

	conditions = status.Set(conditions, status.ReadyTrue("Synced", "updated message"))
	require.Len(t, conditions, 1)
	assert.Equal(t, old, conditions[0].LastTransitionTime)
	assert.Equal(t, "updated message", conditions[0].Message)
}

func TestSetRefreshesLastTransitionTimeOnStatusChange(t *testing.T) {
	old := metav1.NewTime(time.Now().Add(-time.Hour))
	conditions := []v1alpha1.Condition{{
		Type:               v1alpha1.ConditionReady,
		Status:             metav1.ConditionTrue,
		LastTransitionTime: old,
	}}

	conditions = status.Set(conditions, status.ReadyFalse("FetchFailed", "boom"))
	require.Len(t, conditions, 1)
	assert.True(t, conditions[0].LastTransitionTime.After(old.Time))
}

func TestGetReturnsNilWhenAbsent(t *testing.T) {
	assert.Nil(t, status.Get(nil, v1alpha1.ConditionReady))
}
