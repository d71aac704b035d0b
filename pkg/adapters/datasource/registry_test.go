package datasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/models"
)

type noopExtractor struct{}

func (noopExtractor) ExtractSchema(ctx context.Context, conn Connection, includedSchemas []string) (*models.SchemaGraph, error) {
	return models.NewSchemaGraph(), nil
}

func registerTestAdapter(t *testing.T, dsType, displayName string) {
	t.Helper()
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: dsType, DisplayName: displayName},
		ConnectFactory: func(ctx context.Context, config map[string]any) (Connection, error) {
			return nil, nil
		},
		ExtractorFactory: func() MetadataExtractor { return noopExtractor{} },
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, dsType)
		registryMu.Unlock()
	})
}

func TestRegisterAndLookup(t *testing.T) {
	registerTestAdapter(t, "testdb", "TestDB")

	assert.True(t, IsRegistered("testdb"))
	assert.False(t, IsRegistered("otherdb"))
	assert.NotNil(t, GetConnectFactory("testdb"))
	assert.Nil(t, GetConnectFactory("otherdb"))
	assert.NotNil(t, GetExtractorFactory("testdb"))
	assert.Nil(t, GetExtractorFactory("otherdb"))

	var found bool
	for _, info := range RegisteredAdapters() {
		if info.Type == "testdb" {
			found = true
			assert.Equal(t, "TestDB", info.DisplayName)
		}
	}
	assert.True(t, found)
}

func TestExtractorForProduct(t *testing.T) {
	registerTestAdapter(t, "testdb", "TestDB")

	// Exact display name.
	require.NotNil(t, ExtractorForProduct("TestDB"))

	// Product names usually carry version suffixes; substring match covers
	// them case-insensitively.
	assert.NotNil(t, ExtractorForProduct("testdb 14.2 (build 7)"))
	assert.NotNil(t, ExtractorForProduct("TESTDB"))

	assert.Nil(t, ExtractorForProduct("CockroachDB"))
}
