package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dailyyoga/warmcache/cache"
	"github.com/shopspring/decimal"
)

// BalanceConfig describes an account earning compound interest.
// Time is accelerated: YearsPerSecond simulated years pass every second.
type BalanceConfig struct {
	Principal        string  `mapstructure:"principal"`
	Rate             float64 `mapstructure:"rate"`
	CompoundsPerYear int     `mapstructure:"compounds_per_year"`
	YearsPerSecond   float64 `mapstructure:"years_per_second"`
}

func (c *BalanceConfig) Validate() error {
	p, err := decimal.NewFromString(c.Principal)
	if err != nil {
		return fmt.Errorf("config: invalid balance.principal %q: %w", c.Principal, err)
	}
	if p.IsNegative() {
		return fmt.Errorf("config: balance.principal must be >= 0")
	}
	if c.Rate < 0 {
		return fmt.Errorf("config: balance.rate must be >= 0")
	}
	if c.CompoundsPerYear < 1 {
		return fmt.Errorf("config: balance.compounds_per_year must be >= 1")
	}
	if c.YearsPerSecond <= 0 {
		return fmt.Errorf("config: balance.years_per_second must be > 0")
	}
	return nil
}

// balanceSource computes A = P * (1 + r/n)^(n*t) for the time elapsed since start
type balanceSource struct {
	principal decimal.Decimal
	rate      float64
	n         float64
	speed     float64
	start     time.Time
	now       func() time.Time
}

var _ cache.Source[decimal.Decimal] = (*balanceSource)(nil)

func newBalanceSource(cfg BalanceConfig, now func() time.Time) (*balanceSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	principal, _ := decimal.NewFromString(cfg.Principal)
	return &balanceSource{
		principal: principal,
		rate:      cfg.Rate,
		n:         float64(cfg.CompoundsPerYear),
		speed:     cfg.YearsPerSecond,
		start:     now(),
		now:       now,
	}, nil
}

func (s *balanceSource) Refresh(ctx context.Context) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Decimal{}, err
	}
	years := s.now().Sub(s.start).Seconds() * s.speed
	factor := math.Pow(1+s.rate/s.n, s.n*years)
	return s.principal.Mul(decimal.NewFromFloat(factor)).Round(2), nil
}
