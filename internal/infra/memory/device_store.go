package memory

import (
	"sync"

	"care-companion/internal/app"
	"care-companion/internal/routing"
)

// DeviceStore is an in-memory implementation of app.DeviceRepository.
type DeviceStore struct {
	rules routing.Rules

	mu      sync.RWMutex
	devices map[string]*app.Device
}

func NewDeviceStore(rules routing.Rules) *DeviceStore {
	return &DeviceStore{
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
	return device
}

func (s *DeviceStore) Get(subjectID string) (*app.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	device, ok := s.devices[subjectID]
	return device, ok
}

func (s *DeviceStore) Touch(subjectID string) {
	if device, ok := s.Get(subjectID); ok {
		device.Touch()
	}
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
	}
}
