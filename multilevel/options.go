package multilevel

import (
	"time"

	"github.com/voltcache/corecache/entry"
)

// Defaults per spec §6 "Multi-level cache configuration — recognized options".
const (
	DefaultPromotionInterval       = 5 * time.Minute
	DefaultPromotionAccessThreshold = 3
	DefaultMaxPromotionBatchSize   = 100

	DefaultDemotionInterval        = 10 * time.Minute
	DefaultDemotionAgeThreshold    = time.Hour
	DefaultMaxDemotionBatchSize    = 200
	DefaultL1UtilizationThreshold  = 0.85

	DefaultL2WriteThreshold = entry.Normal
)

// Config configures the multi-level composer.
type Config struct {
	Name string

	EnableAutoPromotion      bool
	PromotionInterval        time.Duration
	PromotionAccessThreshold int64
	MaxPromotionBatchSize    int

	WriteThrough     bool
	L2WriteThreshold entry.Priority

	EnableAutoDemotion     bool
	DemotionInterval       time.Duration
	DemotionAgeThreshold   time.Duration
	MaxDemotionBatchSize   int
	L1UtilizationThreshold float64

	// Clock overrides time.Now for deterministic demotion-age tests.
	Clock entry.Clock
}

func (c *Config) setDefaults() {
	if !c.EnableAutoPromotion {
		c.EnableAutoPromotion = true
	}
	if !c.EnableAutoDemotion {
		c.EnableAutoDemotion = true
	}
	if c.L2WriteThreshold == 0 {
		c.L2WriteThreshold = DefaultL2WriteThreshold
	}
	if c.PromotionInterval <= 0 {
		c.PromotionInterval = DefaultPromotionInterval
	}
	if c.PromotionAccessThreshold <= 0 {
		c.PromotionAccessThreshold = DefaultPromotionAccessThreshold
	}
	if c.MaxPromotionBatchSize <= 0 {
		c.MaxPromotionBatchSize = DefaultMaxPromotionBatchSize
	}
	if c.DemotionInterval <= 0 {
		c.DemotionInterval = DefaultDemotionInterval
	}
	if c.DemotionAgeThreshold <= 0 {
		c.DemotionAgeThreshold = DefaultDemotionAgeThreshold
	}
	if c.MaxDemotionBatchSize <= 0 {
		c.MaxDemotionBatchSize = DefaultMaxDemotionBatchSize
	}
	if c.L1UtilizationThreshold <= 0 || c.L1UtilizationThreshold > 1 {
		c.L1UtilizationThreshold = DefaultL1UtilizationThreshold
	}
}

// DefaultConfig returns a Config with every field set to its spec §6 default.
func DefaultConfig() Config {
	return Config{
		EnableAutoPromotion:      true,
		PromotionInterval:        DefaultPromotionInterval,
		PromotionAccessThreshold: DefaultPromotionAccessThreshold,
		MaxPromotionBatchSize:    DefaultMaxPromotionBatchSize,
		WriteThrough:             false,
		L2WriteThreshold:         DefaultL2WriteThreshold,
		EnableAutoDemotion:       true,
		DemotionInterval:         DefaultDemotionInterval,
		DemotionAgeThreshold:     DefaultDemotionAgeThreshold,
		MaxDemotionBatchSize:     DefaultMaxDemotionBatchSize,
		L1UtilizationThreshold:   DefaultL1UtilizationThreshold,
	}
}
