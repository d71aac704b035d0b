package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
)

// PatternSpec describes one named regex pattern in the bank as it appears in
// the YAML file.
type PatternSpec struct {
	Pattern string  `yaml:"pattern"`
	Score   float64 `yaml:"score"`
	PiiType string  `yaml:"pii_type"`
}

// Pattern is a compiled entry of the regex pattern bank.
type Pattern struct {
	Name    string
	Regex   *regexp.Regexp
	Score   float64
	PiiType string
}

// builtinPatterns is the canonical pattern bank. A patterns file can override
// any entry by name or add new ones.
var builtinPatterns = map[string]PatternSpec{
	"EMAIL_RFC5322": {
		Pattern: `^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)+$`,
		Score:   0.9,
		PiiType: "EMAIL",
	},
	"US_SSN": {
		Pattern: `^\d{3}-\d{2}-\d{4}$`,
		Score:   0.95,
		PiiType: "SSN",
	},
	"US_PHONE": {
		Pattern: `^(\+?1[-.\s]?)?(\(?\d{3}\)?[-.\s]?)?\d{3}[-.\s]?\d{4}$`,
		Score:   0.75,
		PiiType: "PHONE",
	},
	"CREDIT_CARD": {
		Pattern: `^(?:4\d{12}(?:\d{3})?|5[1-5]\d{14}|3[47]\d{13}|6(?:011|5\d{2})\d{12})$`,
		Score:   0.9,
		PiiType: "CREDIT_CARD",
	},
	"IP_ADDRESS": {
		Pattern: `^((25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)$`,
		Score:   0.8,
		PiiType: "IP_ADDRESS",
	},
	"IBAN": {
		Pattern: `^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`,
		Score:   0.85,
		PiiType: "IBAN",
	},
	"DATE_FORMAT": {
		Pattern: `^(\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}|\d{2}\.\d{2}\.\d{4})$`,
		Score:   0.6,
		PiiType: "DATE_OF_BIRTH",
	},
}

// LoadPatternBank compiles the built-in pattern bank, merged with the
// optional YAML file at path. Entries are returned sorted by name so a given
// bank always applies in a stable order.
func LoadPatternBank(path string) ([]Pattern, error) {
	specs := make(map[string]PatternSpec, len(builtinPatterns))
	for name, spec := range builtinPatterns {
		specs[name] = spec
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read patterns file %s: %w", path, err)
		}
		var fileSpecs map[string]PatternSpec
		if err := yaml.Unmarshal(data, &fileSpecs); err != nil {
			return nil, fmt.Errorf("parse patterns file %s: %w", path, err)
		}
		for name, spec := range fileSpecs {
			specs[name] = spec
		}
	}

	patterns := make([]Pattern, 0, len(specs))
	for name, spec := range specs {
		if spec.Score < 0 || spec.Score > 1 {
			return nil, apperrors.NewConfigError("patterns."+name,
				fmt.Sprintf("score must be in [0,1], got %v", spec.Score))
		}
		if spec.PiiType == "" {
			return nil, apperrors.NewConfigError("patterns."+name, "pii_type is required")
		}
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, apperrors.NewConfigError("patterns."+name, fmt.Sprintf("invalid regex: %v", err))
		}
		patterns = append(patterns, Pattern{
			Name:    name,
			Regex:   re,
			Score:   spec.Score,
			PiiType: spec.PiiType,
		})
	}

	sort.Slice(patterns, func(i, j int) bool { return patterns[i].Name < patterns[j].Name })
	return patterns, nil
}
