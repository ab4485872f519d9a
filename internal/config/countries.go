package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Country is one entry of the supported-country list.
type Country struct {
	Code        string `yaml:"code"`
	DisplayName string `yaml:"display_name"`
}

// CountriesFile is the parsed shape of countries.yaml.
type CountriesFile struct {
	Countries []Country `yaml:"countries"`
}

// LoadCountries reads and parses the countries YAML file at path.
func LoadCountries(path string) (*CountriesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read countries file: %w", err)
	}

	var cf CountriesFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("config: failed to parse countries YAML: %w", err)
	}
	if len(cf.Countries) == 0 {
		return nil, fmt.Errorf("config: countries file declares no countries")
	}
	return &cf, nil
}

// Codes returns just the country codes, in file order.
func (cf *CountriesFile) Codes() []string {
	codes := make([]string, len(cf.Countries))
	for i, c := range cf.Countries {
		codes[i] = c.Code
	}
	return codes
}

// IsSupported reports whether code is one of the configured countries.
func (cf *CountriesFile) IsSupported(code string) bool {
	for _, c := range cf.Countries {
		if c.Code == code {
			return true
		}
	}
	return false
}
