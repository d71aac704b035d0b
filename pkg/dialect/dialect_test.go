package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
	"github.com/privya-inc/privya-engine/pkg/models"
)

func TestSamplingQueries(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		want    string
	}{
		{
			name:    "mysql random",
			dialect: MySQL{},
			want:    "SELECT `email` FROM `shop`.`users` ORDER BY RAND() LIMIT 100",
		},
		{
			name:    "postgres random",
			dialect: PostgreSQL{},
			want:    `SELECT "email" FROM "shop"."users" ORDER BY RANDOM() LIMIT 100`,
		},
		{
			name:    "oracle random",
			dialect: Oracle{},
			want:    "SELECT email FROM (SELECT email FROM shop.users ORDER BY dbms_random.value) WHERE rownum <= 100",
		},
		{
			name:    "sqlserver random",
			dialect: SQLServer{},
			want:    "SELECT TOP (100) [email] FROM [shop].[users] ORDER BY NEWID()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.dialect.SamplingQuery("shop", "users", "email", 100, models.SamplingRandom)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSamplingQueryFirstN(t *testing.T) {
	assert.Equal(t,
		"SELECT `email` FROM `shop`.`users` LIMIT 10",
		MySQL{}.SamplingQuery("shop", "users", "email", 10, models.SamplingFirstN))
	assert.Equal(t,
		`SELECT "email" FROM "shop"."users" LIMIT 10`,
		PostgreSQL{}.SamplingQuery("shop", "users", "email", 10, models.SamplingFirstN))
	assert.Equal(t,
		"SELECT email FROM shop.users WHERE rownum <= 10",
		Oracle{}.SamplingQuery("shop", "users", "email", 10, models.SamplingFirstN))
	assert.Equal(t,
		"SELECT TOP (10) [email] FROM [shop].[users]",
		SQLServer{}.SamplingQuery("shop", "users", "email", 10, models.SamplingFirstN))
}

func TestSamplingQueryStratifiedFallsBackToRandom(t *testing.T) {
	random := PostgreSQL{}.SamplingQuery("s", "t", "c", 5, models.SamplingRandom)
	stratified := PostgreSQL{}.SamplingQuery("s", "t", "c", 5, models.SamplingStratified)
	assert.Equal(t, random, stratified)
}

func TestCountQuery(t *testing.T) {
	assert.Equal(t, "SELECT COUNT(*) FROM `shop`.`users`", MySQL{}.CountQuery("shop", "users"))
	assert.Equal(t, `SELECT COUNT(*) FROM "users"`, PostgreSQL{}.CountQuery("", "users"))
}

func TestQuoteIdentifierEscapes(t *testing.T) {
	assert.Equal(t, "`weird``name`", MySQL{}.QuoteIdentifier("weird`name"))
	assert.Equal(t, `"weird""name"`, PostgreSQL{}.QuoteIdentifier(`weird"name`))
	assert.Equal(t, "[weird]]name]", SQLServer{}.QuoteIdentifier("weird]name"))
	assert.Equal(t, "PLAIN", Oracle{}.QuoteIdentifier("PLAIN"))
}

func TestForProductExactMatch(t *testing.T) {
	tests := []struct {
		product string
		want    string
	}{
		{"MySQL", "mysql"},
		{"MariaDB", "mysql"},
		{"PostgreSQL", "postgresql"},
		{"Oracle", "oracle"},
		{"Microsoft SQL Server", "sqlserver"},
	}
	for _, tt := range tests {
		d, err := ForProduct(tt.product)
		require.NoError(t, err, tt.product)
		assert.Equal(t, tt.want, d.Name(), tt.product)
	}
}

func TestForProductSubstringFallback(t *testing.T) {
	d, err := ForProduct("PostgreSQL 16.2 on x86_64-pc-linux-gnu")
	require.NoError(t, err)
	assert.Equal(t, "postgresql", d.Name())

	d, err = ForProduct("Oracle Database 19c Enterprise Edition")
	require.NoError(t, err)
	assert.Equal(t, "oracle", d.Name())
}

func TestForProductUnsupported(t *testing.T) {
	_, err := ForProduct("SQLite")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
	_, err = ForProduct("")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDialect)
}
