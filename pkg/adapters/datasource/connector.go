package datasource

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/privya-inc/privya-engine/pkg/apperrors"
)

// ConnectionSpec names one scannable database: the adapter type plus its
// adapter-specific config map (host, port, credentials).
type ConnectionSpec struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// FileConnector resolves connection ids from a static spec map, typically
// loaded from a YAML file. Hosts embedding the engine usually supply their
// own Connector backed by a credential store; this one serves standalone
// deployments.
type FileConnector struct {
	specs map[string]ConnectionSpec
}

// NewFileConnector builds a connector over an in-memory spec map.
func NewFileConnector(specs map[string]ConnectionSpec) *FileConnector {
	return &FileConnector{specs: specs}
}

// LoadFileConnector reads connection specs from a YAML file keyed by
// connection id.
func LoadFileConnector(path string) (*FileConnector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connections file %s: %w", path, err)
	}
	var specs map[string]ConnectionSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse connections file %s: %w", path, err)
	}
	for id, spec := range specs {
		if spec.Type == "" {
			return nil, apperrors.NewConfigError("connections."+id, "type is required")
		}
		if !IsRegistered(spec.Type) {
			return nil, apperrors.NewConfigError("connections."+id,
				fmt.Sprintf("unknown adapter type %q", spec.Type))
		}
	}
	return NewFileConnector(specs), nil
}

// Open resolves a connection id to an open Connection via the adapter
// registry.
func (c *FileConnector) Open(ctx context.Context, connectionID string) (Connection, error) {
	spec, ok := c.specs[connectionID]
	if !ok {
		return nil, fmt.Errorf("connection %q: %w", connectionID, apperrors.ErrNotFound)
	}
	factory := GetConnectFactory(spec.Type)
	if factory == nil {
		return nil, fmt.Errorf("connection %q: adapter %q not registered", connectionID, spec.Type)
	}
	return factory(ctx, spec.Config)
}

var _ Connector = (*FileConnector)(nil)
