package app

import (
	"context"
	"strings"
	"time"

	"care-companion/internal/domain"
)

// DeviceRepository abstracts how devices are stored (in-memory, Redis, etc).
type DeviceRepository interface {
	GetOrCreate(subjectID string) *Device
	Get(subjectID string) (*Device, bool)
	DeleteIfIdle(subjectID string)
	// Touch records activity on the subject's device, if it exists.
	Touch(subjectID string)
}

// ResultStore keeps finished game summaries.
type ResultStore interface {
	Record(ctx context.Context, record domain.ResultRecord) error
	Recent(ctx context.Context, subjectID string, limit int) ([]domain.ResultRecord, error)
}

// CompanionService contains the device-facing use cases.
type CompanionService struct {
	devices  DeviceRepository
	results  ResultStore
	games    GameFactory
	gameOpts []Option
	now      func() time.Time
}

func NewCompanionService(devices DeviceRepository, results ResultStore, games GameFactory, gameOpts ...Option) *CompanionService {
	return &CompanionService{
		devices:  devices,
		results:  results,
		games:    games,
		gameOpts: gameOpts,
		now:      time.Now,
	}
}

// DeliverPush routes a push message to the subject's device, parking the
// target if the device is not connected yet.
func (s *CompanionService) DeliverPush(_ context.Context, env domain.PushEnvelope) error {
	if strings.TrimSpace(env.SubjectID) == "" {
		return domain.ErrSubjectNotFound
	}
	s.devices.GetOrCreate(env.SubjectID).Deliver(env.InboundMessage)
	return nil
}

// Connect attaches conn as the subject's navigation surface.
func (s *CompanionService) Connect(subjectID string, conn Connection) *Device {
	device := s.devices.GetOrCreate(subjectID)
	device.Attach(conn)
	s.devices.Touch(subjectID)
	return device
}

// Ready marks conn interactive and flushes any pending route.
func (s *CompanionService) Ready(subjectID string, conn Connection) error {
	device, ok := s.devices.Get(subjectID)
	if !ok {
		return domain.ErrDeviceNotFound
	}
	device.MarkReady(conn)
	s.devices.Touch(subjectID)
	return nil
}

// Heartbeat keeps a connected device marked as alive.
func (s *CompanionService) Heartbeat(subjectID string) {
	s.devices.Touch(subjectID)
}

// Disconnect detaches conn and drops the device once nothing is left on it.
func (s *CompanionService) Disconnect(subjectID string, conn Connection) {
	device, ok := s.devices.Get(subjectID)
	if !ok {
		return
	}
	device.Detach(conn)
	if device.IsIdle() {
		s.devices.DeleteIfIdle(subjectID)
	}
}

// NewGame builds a game controller for subjectID. opts are applied after the
// service defaults.
func (s *CompanionService) NewGame(subjectID, token string, opts ...Option) *Controller {
	content, identity := s.games(subjectID, token)
	all := make([]Option, 0, len(s.gameOpts)+len(opts))
	all = append(all, s.gameOpts...)
	all = append(all, opts...)
	return NewController(content, identity, all...)
}

// RecordResult stores the summary of a finished game.
func (s *CompanionService) RecordResult(ctx context.Context, subjectID string, summary domain.Summary) error {
	return s.results.Record(ctx, domain.ResultRecord{
		SubjectID:  subjectID,
		Summary:    summary,
		FinishedAt: s.now(),
	})
}

// RecentResults lists the latest summaries for subjectID, newest first.
func (s *CompanionService) RecentResults(ctx context.Context, subjectID string, limit int) ([]domain.ResultRecord, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, domain.ErrSubjectNotFound
	}
	return s.results.Recent(ctx, subjectID, limit)
}
