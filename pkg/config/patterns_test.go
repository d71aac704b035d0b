package config

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankByName(t *testing.T, patterns []Pattern) map[string]Pattern {
	t.Helper()
	m := make(map[string]Pattern, len(patterns))
	for _, p := range patterns {
		m[p.Name] = p
	}
	return m
}

func writePatternsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadPatternBankBuiltins(t *testing.T) {
	patterns, err := LoadPatternBank("")
	require.NoError(t, err)
	require.Len(t, patterns, len(builtinPatterns))

	bank := bankByName(t, patterns)

	email := bank["EMAIL_RFC5322"]
	assert.Equal(t, "EMAIL", email.PiiType)
	assert.Equal(t, 0.9, email.Score)
	assert.True(t, email.Regex.MatchString("alice@example.com"))
	assert.False(t, email.Regex.MatchString("not-an-email"))

	ssn := bank["US_SSN"]
	assert.Equal(t, "SSN", ssn.PiiType)
	assert.Equal(t, 0.95, ssn.Score)
	assert.True(t, ssn.Regex.MatchString("123-45-6789"))
	assert.False(t, ssn.Regex.MatchString("123456789"))

	cc := bank["CREDIT_CARD"]
	assert.True(t, cc.Regex.MatchString("4111111111111111"))
	assert.True(t, cc.Regex.MatchString("378282246310005"))
	assert.False(t, cc.Regex.MatchString("1234567890123456"))

	ip := bank["IP_ADDRESS"]
	assert.True(t, ip.Regex.MatchString("192.168.1.254"))
	assert.False(t, ip.Regex.MatchString("256.0.0.1"))
}

func TestLoadPatternBankStableOrder(t *testing.T) {
	patterns, err := LoadPatternBank("")
	require.NoError(t, err)

	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.Name
	}
	assert.True(t, sort.StringsAreSorted(names))
}

func TestLoadPatternBankFileMerge(t *testing.T) {
	path := writePatternsFile(t, `
US_SSN:
  pattern: '^\d{9}$'
  score: 0.5
  pii_type: SSN
UK_NINO:
  pattern: '^[A-Z]{2}\d{6}[A-D]$'
  score: 0.85
  pii_type: NATIONAL_ID
`)

	patterns, err := LoadPatternBank(path)
	require.NoError(t, err)
	require.Len(t, patterns, len(builtinPatterns)+1)

	bank := bankByName(t, patterns)

	// File entry overrides the builtin of the same name.
	ssn := bank["US_SSN"]
	assert.Equal(t, 0.5, ssn.Score)
	assert.True(t, ssn.Regex.MatchString("123456789"))
	assert.False(t, ssn.Regex.MatchString("123-45-6789"))

	nino := bank["UK_NINO"]
	assert.Equal(t, "NATIONAL_ID", nino.PiiType)
	assert.True(t, nino.Regex.MatchString("QQ123456C"))

	// Untouched builtins survive the merge.
	assert.Contains(t, bank, "EMAIL_RFC5322")
}

func TestLoadPatternBankMissingFile(t *testing.T) {
	_, err := LoadPatternBank(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPatternBankValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name: "score out of range",
			content: `BAD:
  pattern: '^x$'
  score: 1.5
  pii_type: EMAIL
`,
			field: "patterns.BAD",
		},
		{
			name: "missing pii_type",
			content: `BAD:
  pattern: '^x$'
  score: 0.5
`,
			field: "patterns.BAD",
		},
		{
			name: "invalid regex",
			content: `BAD:
  pattern: '['
  score: 0.5
  pii_type: EMAIL
`,
			field: "patterns.BAD",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPatternBank(writePatternsFile(t, tt.content))
			assertConfigError(t, err, tt.field)
		})
	}
}
