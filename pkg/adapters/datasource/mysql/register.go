package mysql

import (
	"context"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "mysql",
			DisplayName: "MySQL",
			Description: "Scan MySQL 8.0+ and MariaDB",
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
