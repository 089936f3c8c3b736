package application

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// GasDefaults are the conversion constants applied when a gas tariff does not
// carry its own calibration.
type GasDefaults struct {
	CalorificValue   float64 `yaml:"calorific_value"`
	CorrectionFactor float64 `yaml:"correction_factor"`
}

// Config defines billing defaults.
type Config struct {
	Gas           GasDefaults `yaml:"gas"`
	DefaultVAT    float64     `yaml:"default_vat"`
	DueDays       int         `yaml:"due_days"`
	MaxReading    float64     `yaml:"max_reading"`
	DayShare      float64     `yaml:"day_share"`
	OverdueSweep  string      `yaml:"overdue_sweep_at"`
	InvoicePrefix string      `yaml:"invoice_prefix"`
}

// LoadConfig loads config from yaml or env. Defaults are the published UK
// figures: 39.4 MJ/m3 calorific value, 1.02264 volume correction, 5% VAT.
func LoadConfig() (Config, error) {
	cfg := Config{
		Gas: GasDefaults{
			CalorificValue:   39.4,
			CorrectionFactor: 1.02264,
		},
		DefaultVAT:    0.05,
		DueDays:       14,
		MaxReading:    99999.99,
		DayShare:      0.6,
		OverdueSweep:  getenvDefault("BILLING_OVERDUE_SWEEP_AT", "02:00"),
		InvoicePrefix: getenvDefault("BILLING_INVOICE_PREFIX", "INV"),
	}

	if path := os.Getenv("BILLING_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if env := os.Getenv("BILLING_DUE_DAYS"); env != "" {
		parsed, err := strconv.Atoi(env)
		if err == nil && parsed > 0 {
			cfg.DueDays = parsed
		}
	}

	if cfg.Gas.CalorificValue <= 0 {
		return cfg, errors.New("billing config: calorific value must be positive")
	}
	if cfg.Gas.CorrectionFactor <= 0 {
		return cfg, errors.New("billing config: correction factor must be positive")
	}
	if cfg.DefaultVAT < 0 || cfg.DefaultVAT >= 1 {
		return cfg, errors.New("billing config: vat rate out of range")
	}
	if cfg.DueDays <= 0 {
		return cfg, errors.New("billing config: due days must be positive")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
