package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mschirtzinger/flowboard/internal/backend"
)

// CloudConfigKey is the local-cache key holding the saved cloud config.
const CloudConfigKey = "cloud-config"

// KV is the subset of the local cache used to persist the cloud config.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadCloudConfig returns the saved cloud config, or the zero config when none
// was saved. A stored value that does not parse is reported as
// backend.ErrMalformed together with the zero config.
func LoadCloudConfig(ctx context.Context, kv KV) (CloudConfig, error) {
	data, err := kv.Get(ctx, CloudConfigKey)
	if errors.Is(err, backend.ErrNoData) {
		return CloudConfig{}, nil
	}
	if err != nil {
		return CloudConfig{}, err
	}
	var cfg CloudConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CloudConfig{}, fmt.Errorf("%s: %w: %v", CloudConfigKey, backend.ErrMalformed, err)
	}
	return cfg, nil
}

// SaveCloudConfig validates and stores cfg.
func SaveCloudConfig(ctx context.Context, kv KV, cfg CloudConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud config: %w", err)
	}
	return kv.Put(ctx, CloudConfigKey, data)
}

// ClearCloudConfig removes the saved cloud config.
func ClearCloudConfig(ctx context.Context, kv KV) error {
	return kv.Delete(ctx, CloudConfigKey)
}
