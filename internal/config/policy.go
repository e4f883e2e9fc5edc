package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ReconcilePolicy holds operator-tunable reconciliation knobs.
type ReconcilePolicy struct {
	// GracePeriodDays is how long a past_due subscriber keeps service after a
	// payment failure before suspension takes effect.
	GracePeriodDays int `mapstructure:"gracePeriodDays"`
	// LookupTimeoutSeconds bounds outbound customer lookups against the
	// billing provider.
	LookupTimeoutSeconds int `mapstructure:"lookupTimeoutSeconds"`
}

func DefaultReconcilePolicy() ReconcilePolicy {
	return ReconcilePolicy{
		GracePeriodDays:      30,
		LookupTimeoutSeconds: 10,
	}
}

// GracePeriod returns the grace period as a duration.
func (p ReconcilePolicy) GracePeriod() time.Duration {
	return time.Duration(p.GracePeriodDays) * 24 * time.Hour
}

// LookupTimeout returns the outbound lookup deadline.
func (p ReconcilePolicy) LookupTimeout() time.Duration {
	return time.Duration(p.LookupTimeoutSeconds) * time.Second
}

// PolicyHolder exposes the current ReconcilePolicy and hot-reloads it when
// the config file changes on disk.
type PolicyHolder struct {
	current atomic.Value // holds ReconcilePolicy
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("reconcile")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/subsync/config")
	v.AddConfigPath("/etc/subsync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SUBSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultReconcilePolicy()
	v.SetDefault("reconcile.gracePeriodDays", defaults.GracePeriodDays)
	v.SetDefault("reconcile.lookupTimeoutSeconds", defaults.LookupTimeoutSeconds)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy ReconcilePolicy
	if err := v.UnmarshalKey("reconcile", &policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReconcilePolicy
		if err := v.UnmarshalKey("reconcile", &updated); err != nil {
			log.Printf("[reconcile-policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[reconcile-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[reconcile-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPolicyHolder wraps a fixed policy; used by tests.
func NewStaticPolicyHolder(policy ReconcilePolicy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *PolicyHolder) Get() ReconcilePolicy {
	return h.current.Load().(ReconcilePolicy)
}

func validatePolicy(policy ReconcilePolicy) error {
	if policy.GracePeriodDays <= 0 {
		return errors.New("reconcile.gracePeriodDays must be positive")
	}
	if policy.LookupTimeoutSeconds <= 0 {
		return errors.New("reconcile.lookupTimeoutSeconds must be positive")
	}
	return nil
}
