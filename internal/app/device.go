package app

import (
	"sync"
	"time"

	"care-companion/internal/domain"
	"care-companion/internal/routing"
)

// Connection is a live device session able to display screens.
type Connection interface {
	ID() string
	Navigate(screen domain.Screen)
}

// Device is the per-subject navigation endpoint. It owns the push router and
// acts as its Navigator: it is ready once the attached connection says so.
type Device struct {
	subjectID string
	router    *routing.Router
	now       func() time.Time

	mu       sync.RWMutex
	conn     Connection
	ready    bool
	lastSeen time.Time
}

// NewDevice is exported for infrastructure layers that need to seed devices.
func NewDevice(subjectID string, rules routing.Rules) *Device {
	return NewDeviceWithClock(subjectID, rules, time.Now)
}

// NewDeviceWithClock allows deterministic timestamps in tests.
func NewDeviceWithClock(subjectID string, rules routing.Rules, now func() time.Time) *Device {
	d := &Device{subjectID: subjectID, now: now, lastSeen: now()}
	d.router = routing.NewRouter(rules, d)
	return d
}

func (d *Device) SubjectID() string { return d.subjectID }

// IsReady implements routing.Navigator.
func (d *Device) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn != nil && d.ready
}

// NavigateTo implements routing.Navigator.
func (d *Device) NavigateTo(screen domain.Screen) {
	d.mu.RLock()
	conn := d.conn
	d.mu.RUnlock()
	if conn != nil {
		conn.Navigate(screen)
	}
}

// Deliver routes a push message to the device.
func (d *Device) Deliver(msg domain.InboundMessage) {
	d.router.Route(msg)
}

// Pending returns the route waiting for the device to become ready.
func (d *Device) Pending() domain.Screen {
	return d.router.Pending()
}

// Attach makes conn the device's navigation surface. A previously attached
// connection stops receiving navigation.
func (d *Device) Attach(conn Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = conn
	d.ready = false
	d.lastSeen = d.now()
}

// MarkReady signals that conn is interactive. The first call for the
// attached connection drains the pending route and reports true; a repeated
// call only flushes whatever is still parked.
func (d *Device) MarkReady(conn Connection) bool {
	d.mu.Lock()
	if d.conn != conn {
		d.mu.Unlock()
		return false
	}
	if d.ready {
		d.lastSeen = d.now()
		d.mu.Unlock()
		d.router.Flush()
		return false
	}
	d.ready = true
	d.lastSeen = d.now()
	d.mu.Unlock()

	d.router.OnNavigationReady()
	return true
}

// Detach removes conn if it is still the attached connection.
func (d *Device) Detach(conn Connection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != conn {
		return
	}
	d.conn = nil
	d.ready = false
	d.lastSeen = d.now()
}

// IsIdle reports whether nothing is attached and no route is waiting.
func (d *Device) IsIdle() bool {
	d.mu.RLock()
	attached := d.conn != nil
	d.mu.RUnlock()
	return !attached && d.router.Pending() == domain.ScreenNone
}

// Touch records activity on the attached connection.
func (d *Device) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeen = d.now()
}

// LastSeen is the time of the last attach, ready, detach or touch.
func (d *Device) LastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeen
}
