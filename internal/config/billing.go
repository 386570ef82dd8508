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

// BillingConfig holds billing policy that operators tune without redeploying.
type BillingConfig struct {
	Currency          string        `mapstructure:"currency"`
	CaptureTimeout    time.Duration `mapstructure:"captureTimeout"`
	SchedulerInterval time.Duration `mapstructure:"schedulerInterval"`
	StaleRunAfter     time.Duration `mapstructure:"staleRunAfter"`
	RunTimeout        time.Duration `mapstructure:"runTimeout"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		Currency:          "usd",
		CaptureTimeout:    15 * time.Second,
		SchedulerInterval: time.Hour,
		StaleRunAfter:     6 * time.Hour,
		RunTimeout:        10 * time.Minute,
	}
}

// BillingConfigHolder exposes the current billing policy and hot-reloads it
// when the config file changes.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/clubops")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUBOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.currency", defaults.Currency)
	v.SetDefault("billing.captureTimeout", defaults.CaptureTimeout)
	v.SetDefault("billing.schedulerInterval", defaults.SchedulerInterval)
	v.SetDefault("billing.staleRunAfter", defaults.StaleRunAfter)
	v.SetDefault("billing.runTimeout", defaults.RunTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Printf("[billing-config] reload failed: %v", err)
			return
		}
		if err := validateBillingConfig(updated); err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticBillingConfigHolder wraps a fixed policy, used by tests.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("billing.currency cannot be empty")
	}
	if cfg.CaptureTimeout <= 0 {
		return errors.New("billing.captureTimeout must be positive")
	}
	if cfg.SchedulerInterval <= 0 {
		return errors.New("billing.schedulerInterval must be positive")
	}
	if cfg.StaleRunAfter <= 0 {
		return errors.New("billing.staleRunAfter must be positive")
	}
	if cfg.RunTimeout <= 0 {
		return errors.New("billing.runTimeout must be positive")
	}
	return nil
}
