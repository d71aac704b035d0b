package datasource

import (
	"context"
	"strings"
	"sync"
)

// AdapterInfo describes a registered adapter for host discovery.
type AdapterInfo struct {
	Type        string `json:"type"`         // "postgres", "mysql", "sqlserver"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`
}

// AdapterRegistration contains info + factories for creating adapters.
type AdapterRegistration struct {
	Info             AdapterInfo
	ConnectFactory   func(ctx context.Context, config map[string]any) (Connection, error)
	ExtractorFactory func() MetadataExtractor
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	return result
}

// GetConnectFactory returns the connection factory for an adapter type.
// Returns nil if the type is not registered.
func GetConnectFactory(dsType string) func(ctx context.Context, config map[string]any) (Connection, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.ConnectFactory
	}
	return nil
}

// GetExtractorFactory returns the metadata extractor factory for an adapter
// type. Returns nil if the type is not registered.
func GetExtractorFactory(dsType string) func() MetadataExtractor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if reg, ok := registry[dsType]; ok {
		return reg.ExtractorFactory
	}
	return nil
}

// ExtractorForProduct resolves a metadata extractor from a database product
// name, matching the adapter display name exactly first, then by
// case-insensitive substring. Returns nil when no adapter matches.
func ExtractorForProduct(productName string) MetadataExtractor {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, reg := range registry {
		if reg.Info.DisplayName == productName {
			return reg.ExtractorFactory()
		}
	}
	lower := strings.ToLower(productName)
	for _, reg := range registry {
		if strings.Contains(lower, strings.ToLower(reg.Info.DisplayName)) ||
			strings.Contains(strings.ToLower(reg.Info.DisplayName), lower) {
			return reg.ExtractorFactory()
		}
	}
	return nil
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dsType]
	return ok
}
