package postgres

import (
	"context"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "Scan PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		ConnectFactory: func(ctx context.Context, config map[string]any) (datasource.Connection, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return Connect(ctx, cfg)
		},
		ExtractorFactory: func() datasource.MetadataExtractor {
			return NewExtractor()
		},
	})
}
