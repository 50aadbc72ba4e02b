package redis

import (
	"context"
	"sync"
	"time"

	"care-companion/internal/app"
	"care-companion/internal/routing"
	"github.com/redis/go-redis/v9"
)

// DeviceStore is a Redis-aware implementation of app.DeviceRepository.
// Devices and their pending routes live in process; Redis only carries a
// liveness marker, refreshed on every touch, so other instances can tell
// which subjects are served here.
type DeviceStore struct {
	client *redis.Client
	ttl    time.Duration
	rules  routing.Rules

	mu      sync.RWMutex
	devices map[string]*app.Device
}

func NewDeviceStore(client *redis.Client, rules routing.Rules, ttl time.Duration) *DeviceStore {
	return &DeviceStore{
		client:  client,
		ttl:     ttl,
		rules:   rules,
		devices: make(map[string]*app.Device),
	}
}

func (s *DeviceStore) GetOrCreate(subjectID string) *app.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	if device, ok := s.devices[subjectID]; ok {
		return device
	}
	device := app.NewDevice(subjectID, s.rules)
	s.devices[subjectID] = device
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), deviceKey(subjectID), "1", s.ttl).Err()
	return device
}

func (s *DeviceStore) Get(subjectID string) (*app.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[subjectID]
	return device, ok
}

// Touch refreshes the liveness marker of a known device.
func (s *DeviceStore) Touch(subjectID string) {
	device, ok := s.Get(subjectID)
	if !ok {
		return
	}
	device.Touch()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), deviceKey(subjectID), "1", s.ttl).Err()
}

func (s *DeviceStore) DeleteIfIdle(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	device, ok := s.devices[subjectID]
	if !ok {
		return
	}
	if device.IsIdle() {
		delete(s.devices, subjectID)
		_ = s.client.Del(context.Background(), deviceKey(subjectID)).Err()
	}
}

func deviceKey(subjectID string) string {
	return "care:device:" + subjectID
}
