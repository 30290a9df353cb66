package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/realfolio-backend/internal/domain"
	"github.com/simaogato/realfolio-backend/internal/usecase/normalizer"
)

// CategoryConfig is the profile entry of one asset category
type CategoryConfig struct {
	RateSeries        string          `json:"rate_series" yaml:"rate_series"`
	LotSizeMultiplier decimal.Decimal `json:"lot_size_multiplier" yaml:"lot_size_multiplier"`
}

// SeriesConfig declares a rate series and how it behaves past its last point
type SeriesConfig struct {
	Name string            `json:"name" yaml:"name"`
	Kind domain.SeriesKind `json:"kind" yaml:"kind"`
}

// Profile is the ledger configuration: currencies, category profiles, series and tolerances
type Profile struct {
	PrimaryCurrency          string                                  `json:"primary_currency" yaml:"primary_currency"`
	SecondaryCurrency        string                                  `json:"secondary_currency" yaml:"secondary_currency"`
	Categories               map[domain.AssetCategory]CategoryConfig `json:"categories" yaml:"categories"`
	Series                   []SeriesConfig                          `json:"series" yaml:"series"`
	PrimaryCPI               string                                  `json:"primary_cpi" yaml:"primary_cpi"`
	SecondaryCPI             string                                  `json:"secondary_cpi" yaml:"secondary_cpi"`
	FallbackMonthlyInflation decimal.Decimal                         `json:"fallback_monthly_inflation" yaml:"fallback_monthly_inflation"`
	QuantityEpsilon          decimal.Decimal                         `json:"quantity_epsilon" yaml:"quantity_epsilon"`
	Classification           []normalizer.Rule                       `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// DefaultProfile returns the Argentine peso / US dollar setup
func DefaultProfile() *Profile {
	return &Profile{
		PrimaryCurrency:   "ARS",
		SecondaryCurrency: "USD",
		Categories: map[domain.AssetCategory]CategoryConfig{
			domain.CategoryEquity:            {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(1)},
			domain.CategoryDepositaryReceipt: {RateSeries: "dolar_ccl", LotSizeMultiplier: decimal.NewFromInt(1)},
			domain.CategoryFixedIncome:       {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(1)},
			domain.CategoryOption:            {RateSeries: "dolar_mep", LotSizeMultiplier: decimal.NewFromInt(100)},
		},
		Series: []SeriesConfig{
			{Name: "dolar_mep", Kind: domain.SeriesKindExchangeRate},
			{Name: "dolar_ccl", Kind: domain.SeriesKindExchangeRate},
			{Name: "cpi_argentina", Kind: domain.SeriesKindInflation},
			{Name: "cpi_usa", Kind: domain.SeriesKindInflation},
		},
		PrimaryCPI:               "cpi_argentina",
		SecondaryCPI:             "cpi_usa",
		FallbackMonthlyInflation: decimal.RequireFromString("0.002"),
		QuantityEpsilon:          decimal.RequireFromString("0.001"),
		Classification:           normalizer.DefaultRules(),
	}
}

// LoadProfile loads a profile file (YAML, or JSON as fallback).
// An empty path returns DefaultProfile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile file: %w", err)
	}

	return ParseProfile(data)
}

// ParseProfile decodes and validates a profile document
func ParseProfile(data []byte) (*Profile, error) {
	p := &Profile{}

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, p); err != nil {
		if jsonErr := json.Unmarshal(data, p); jsonErr != nil {
			return nil, fmt.Errorf("parse profile (tried YAML and JSON): %w", err)
		}
	}

	if len(p.Classification) == 0 {
		p.Classification = normalizer.DefaultRules()
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}

	return p, nil
}

// Validate checks currencies, category profiles and series declarations
// Logic:
//   - both currencies must be distinct ISO 4217 codes
//   - every category needs a profile whose series is a declared exchange rate
//   - both CPI series must be declared as inflation series
func (p *Profile) Validate() error {
	p.PrimaryCurrency = strings.ToUpper(strings.TrimSpace(p.PrimaryCurrency))
	p.SecondaryCurrency = strings.ToUpper(strings.TrimSpace(p.SecondaryCurrency))

	for _, code := range []string{p.PrimaryCurrency, p.SecondaryCurrency} {
		if money.GetCurrency(code) == nil {
			return fmt.Errorf("unknown currency code %q", code)
		}
	}
	if p.PrimaryCurrency == p.SecondaryCurrency {
		return fmt.Errorf("primary and secondary currency must differ")
	}

	kinds := make(map[string]domain.SeriesKind, len(p.Series))
	for _, s := range p.Series {
		if s.Name == "" {
			return fmt.Errorf("series name cannot be empty")
		}
		if !s.Kind.Valid() {
			return fmt.Errorf("series %s has unknown kind %q", s.Name, s.Kind)
		}
		if _, dup := kinds[s.Name]; dup {
			return fmt.Errorf("series %s declared twice", s.Name)
		}
		kinds[s.Name] = s.Kind
	}

	if err := p.CategoryProfiles().Validate(); err != nil {
		return err
	}
	for category, c := range p.Categories {
		if kinds[c.RateSeries] != domain.SeriesKindExchangeRate {
			return fmt.Errorf("category %s uses %s, which is not a declared exchange rate series", category, c.RateSeries)
		}
	}

	for _, cpi := range []string{p.PrimaryCPI, p.SecondaryCPI} {
		if kinds[cpi] != domain.SeriesKindInflation {
			return fmt.Errorf("%q is not a declared inflation series", cpi)
		}
	}

	if p.FallbackMonthlyInflation.IsNegative() {
		return fmt.Errorf("fallback_monthly_inflation cannot be negative")
	}
	if !p.QuantityEpsilon.IsPositive() {
		return fmt.Errorf("quantity_epsilon must be positive")
	}

	if _, err := normalizer.NewClassifier(p.Classification); err != nil {
		return err
	}

	return nil
}

// CategoryProfiles converts the category entries into domain profiles
func (p *Profile) CategoryProfiles() domain.CategoryProfiles {
	profiles := make(domain.CategoryProfiles, len(p.Categories))
	for category, c := range p.Categories {
		profiles[category] = domain.CategoryProfile{
			RateSeries:        c.RateSeries,
			LotSizeMultiplier: c.LotSizeMultiplier,
		}
	}
	return profiles
}

// CurrencyCode returns the ISO code configured for a tracked currency
func (p *Profile) CurrencyCode(c domain.Currency) string {
	if c == domain.CurrencySecondary {
		return p.SecondaryCurrency
	}
	return p.PrimaryCurrency
}
