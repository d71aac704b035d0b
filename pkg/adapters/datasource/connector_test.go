package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
)

type fakeConn struct{ Connection }

func TestFileConnectorOpen(t *testing.T) {
	registerTestAdapter(t, "testdb", "TestDB")

	opened := fakeConn{}
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "testdb", DisplayName: "TestDB"},
		ConnectFactory: func(ctx context.Context, config map[string]any) (Connection, error) {
			assert.Equal(t, "db.internal", config["host"])
			return opened, nil
		},
		ExtractorFactory: func() MetadataExtractor { return noopExtractor{} },
	})

	connector := NewFileConnector(map[string]ConnectionSpec{
		"prod-users": {Type: "testdb", Config: map[string]any{"host": "db.internal"}},
	})

	conn, err := connector.Open(context.Background(), "prod-users")
	require.NoError(t, err)
	assert.Equal(t, opened, conn)

	_, err = connector.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLoadFileConnector(t *testing.T) {
	registerTestAdapter(t, "testdb", "TestDB")

	path := filepath.Join(t.TempDir(), "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
prod-users:
  type: testdb
  config:
    host: db.internal
    port: 5432
`), 0o600))

	connector, err := LoadFileConnector(path)
	require.NoError(t, err)
	require.NotNil(t, connector)
	assert.Equal(t, "testdb", connector.specs["prod-users"].Type)
}

func TestLoadFileConnectorRejectsUnknownAdapter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bad:
  type: db2
  config: {}
`), 0o600))

	_, err := LoadFileConnector(path)
	var cfgErr *apperrors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "connections.bad", cfgErr.Field)
}
