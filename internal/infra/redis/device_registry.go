package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DeviceRegistry keeps best-effort audit markers for devices that started
// an attempt. Device identity is not an enforced uniqueness key; the
// markers exist so operators can correlate result rows with devices.
type DeviceRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDeviceRegistry(client *redis.Client, ttl time.Duration) *DeviceRegistry {
	return &DeviceRegistry{client: client, ttl: ttl}
}

// Touch records that a device started an attempt. Best-effort: failures
// are ignored, the quiz does not depend on the marker.
func (r *DeviceRegistry) Touch(ctx context.Context, deviceID string) {
	_ = r.client.Set(ctx, r.key(deviceID), time.Now().UTC().Format(time.RFC3339), r.ttl).Err()
}

// Seen reports whether a device marker exists.
func (r *DeviceRegistry) Seen(ctx context.Context, deviceID string) bool {
	n, err := r.client.Exists(ctx, r.key(deviceID)).Result()
	return err == nil && n > 0
}

func (r *DeviceRegistry) key(deviceID string) string {
	return "quiz:device:" + deviceID
}
