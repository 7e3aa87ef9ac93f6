package registry

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/storefront-ledger/internal/domain/account"
	"github.com/storefront-ledger/internal/domain/shared"
)

//go:embed default_chart.yaml
var defaultChart []byte

// ChartAccount is one account definition in a chart file
type ChartAccount struct {
	Number      string          `yaml:"number"`
	Name        string          `yaml:"name"`
	Type        account.Type    `yaml:"type"`
	SubType     account.SubType `yaml:"sub_type"`
	Description string          `yaml:"description"`
}

// Chart is a chart of accounts to seed
type Chart struct {
	Accounts []ChartAccount `yaml:"accounts"`
}

// DefaultChart returns the built-in retail chart
func DefaultChart() (*Chart, error) {
	return ParseChart(defaultChart)
}

// LoadChart reads a chart file, falling back to the built-in chart when path is empty
func LoadChart(path string) (*Chart, error) {
	if path == "" {
		return DefaultChart()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chart file: %w", err)
	}
	return ParseChart(data)
}

// ParseChart decodes and validates a YAML chart
func ParseChart(data []byte) (*Chart, error) {
	var chart Chart
	if err := yaml.Unmarshal(data, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse chart: %w", err)
	}
	if err := chart.Validate(); err != nil {
		return nil, err
	}
	return &chart, nil
}

// Validate checks every definition and rejects repeated numbers or subtypes
func (c *Chart) Validate() error {
	if len(c.Accounts) == 0 {
		return shared.ValidationError{Field: "accounts", Reason: "chart has no accounts"}
	}

	numbers := make(map[string]bool, len(c.Accounts))
	subTypes := make(map[account.SubType]bool)
	for _, def := range c.Accounts {
		if _, err := account.NewAccount(def.Number, def.Name, def.Type, def.SubType, def.Description); err != nil {
			return fmt.Errorf("chart account %q: %w", def.Number, err)
		}
		number := strings.TrimSpace(def.Number)
		if numbers[number] {
			return shared.ValidationError{Field: "accounts.number", Reason: "duplicate number " + number}
		}
		numbers[number] = true
		if def.SubType != account.SubTypeNone {
			if subTypes[def.SubType] {
				return shared.ValidationError{Field: "accounts.sub_type", Reason: "duplicate sub type " + string(def.SubType)}
			}
			subTypes[def.SubType] = true
		}
	}
	return nil
}
