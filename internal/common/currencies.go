package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// CurrencyConfig describes a currency the gateway may charge in. Exponent is
// the minor-unit shift (2 for INR/USD paise/cents).
type CurrencyConfig struct {
	Code     string `yaml:"code"`
	Exponent int    `yaml:"exponent"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

// DefaultCurrencies is used when no currencies file is present.
var DefaultCurrencies = []CurrencyConfig{
	{Code: "INR", Exponent: 2},
}

func LoadCurrencyConfig(currenciesFile string) ([]CurrencyConfig, error) {
	var path string
	if filepath.IsAbs(currenciesFile) {
		path = currenciesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCurrencies, nil
		}
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesFile, err)
	}

	for i, c := range config.Currencies {
		if c.Code == "" {
			return nil, fmt.Errorf("currency at index %d missing code", i)
		}
		if c.Exponent < 0 {
			return nil, fmt.Errorf("currency %s has negative exponent %d", c.Code, c.Exponent)
		}
	}

	return config.Currencies, nil
}

// FindCurrency looks up a currency by code, case-insensitively.
func FindCurrency(currencies []CurrencyConfig, code string) (CurrencyConfig, error) {
	for _, c := range currencies {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return CurrencyConfig{}, fmt.Errorf("currency %s is not configured", code)
}
