package mssql

import (
	"context"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlserver",
			DisplayName: "Microsoft SQL Server",
			Description: "Scan SQL Server 2017+ and Azure SQL",
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
