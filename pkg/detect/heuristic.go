package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/privya-inc/privya-engine/pkg/models"
)

type namePattern struct {
	re          *regexp.Regexp
	piiType     string
	baseScore   float64
	description string
}

// Table order matters: the first pattern that matches a column wins.
// More specific patterns come before generic ones. Patterns match against
// normalized text where underscores and dashes become spaces, so word
// boundaries work on snake_case names.
var heuristicPatterns = []namePattern{
	{regexp.MustCompile(`(?i)e ?mail`), "EMAIL", 0.9, "email address column"},
	{regexp.MustCompile(`(?i)\bssn\b|social ?security`), "SSN", 0.95, "social security number"},
	{regexp.MustCompile(`(?i)passport`), "PASSPORT", 0.9, "passport number"},
	{regexp.MustCompile(`(?i)credit ?card|card ?number|\bpan\b`), "CREDIT_CARD", 0.9, "payment card number"},
	{regexp.MustCompile(`(?i)phone|mobile|cell ?num|fax`), "PHONE", 0.85, "phone number"},
	{regexp.MustCompile(`(?i)birth|\bdob\b`), "DATE_OF_BIRTH", 0.85, "date of birth"},
	{regexp.MustCompile(`(?i)first ?name|last ?name|full ?name|surname|given ?name`), "NAME", 0.85, "person name"},
	{regexp.MustCompile(`(?i)ip ?addr`), "IP_ADDRESS", 0.8, "IP address"},
	{regexp.MustCompile(`(?i)street|address ?line|home ?addr`), "ADDRESS", 0.8, "street address"},
	{regexp.MustCompile(`(?i)driver ?licen[cs]e|\bdl ?num`), "DRIVERS_LICENSE", 0.85, "driving licence number"},
	{regexp.MustCompile(`(?i)\biban\b|bank ?account|routing ?num`), "BANK_ACCOUNT", 0.85, "bank account"},
	{regexp.MustCompile(`(?i)password|passwd|secret|api ?key`), "CREDENTIAL", 0.9, "stored credential"},
	{regexp.MustCompile(`(?i)national ?id|tax ?id|\btin\b`), "NATIONAL_ID", 0.85, "national identifier"},
	{regexp.MustCompile(`(?i)\bname\b`), "NAME", 0.6, "possible person name"},
}

var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// normalizeIdentifier lowercases and splits snake_case and kebab-case so
// \b-anchored patterns see word boundaries.
func normalizeIdentifier(s string) string {
	return separators.Replace(strings.ToLower(s))
}

// HeuristicStrategy scores columns from their name and comments alone.
// A match on the name yields the pattern's base score; a match only on the
// comments yields 0.8 of it.
type HeuristicStrategy struct {
	patterns []namePattern
}

func NewHeuristicStrategy() *HeuristicStrategy {
	return &HeuristicStrategy{patterns: heuristicPatterns}
}

func (s *HeuristicStrategy) Name() string { return models.StrategyHeuristic }

func (s *HeuristicStrategy) Detect(_ context.Context, column *models.Column, _ *models.SampleData) ([]models.PiiCandidate, error) {
	name := normalizeIdentifier(column.Name)
	comments := normalizeIdentifier(column.Comments)

	// Name matches take precedence over comment-only matches regardless of
	// table order; within each source the first pattern wins.
	for _, p := range s.patterns {
		if p.re.MatchString(name) {
			return []models.PiiCandidate{{
				ColumnID:   column.ID,
				PiiType:    p.piiType,
				Confidence: clamp01(p.baseScore),
				Strategy:   s.Name(),
				Evidence:   fmt.Sprintf("column name matches %s", p.description),
			}}, nil
		}
	}
	if comments != "" {
		for _, p := range s.patterns {
			if p.re.MatchString(comments) {
				return []models.PiiCandidate{{
					ColumnID:   column.ID,
					PiiType:    p.piiType,
					Confidence: clamp01(0.8 * p.baseScore),
					Strategy:   s.Name(),
					Evidence:   fmt.Sprintf("column comment matches %s", p.description),
				}}, nil
			}
		}
	}
	return nil, nil
}
