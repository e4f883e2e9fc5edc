package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultReconcilePolicy(t *testing.T) {
	policy := DefaultReconcilePolicy()
	require.Equal(t, 30*24*time.Hour, policy.GracePeriod())
	require.Equal(t, 10*time.Second, policy.LookupTimeout())
}

func TestValidatePolicy(t *testing.T) {
	require.NoError(t, validatePolicy(DefaultReconcilePolicy()))
	require.Error(t, validatePolicy(ReconcilePolicy{GracePeriodDays: 0, LookupTimeoutSeconds: 10}))
	require.Error(t, validatePolicy(ReconcilePolicy{GracePeriodDays: 30, LookupTimeoutSeconds: -1}))
}

func TestStaticPolicyHolder(t *testing.T) {
	holder := NewStaticPolicyHolder(ReconcilePolicy{GracePeriodDays: 7, LookupTimeoutSeconds: 3})
	require.Equal(t, 7*24*time.Hour, holder.Get().GracePeriod())
}
