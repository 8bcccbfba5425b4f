// Package identity derives the build identity of a run: the timestamp it
// started at and the version stamped on every artifact it produces.
package identity

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// TimestampLayout formats timestamps as YYYYMMDD_HHMMSS.
const TimestampLayout = "20060102_150405"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// BuildIdentity identifies one run. It is derived once and never changes.
type BuildIdentity struct {
	Timestamp string    `json:"timestamp" yaml:"timestamp"`
	Version   string    `json:"version" yaml:"version"`
	Counter   uint64    `json:"counter" yaml:"counter"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// Derive computes the identity for counter. The clock is read exactly once
// and the timestamp is rendered in UTC at second resolution. The version is
// the counter in decimal.
func Derive(counter uint64, clock Clock) (BuildIdentity, error) {
	if counter == 0 {
		return BuildIdentity{}, errors.New(errors.CodeInvalidConfig, "build counter must be greater than zero")
	}
	if clock == nil {
		clock = SystemClock
	}

	now := clock.Now().UTC().Truncate(time.Second)
	return BuildIdentity{
		Timestamp: now.Format(TimestampLayout),
		Version:   strconv.FormatUint(counter, 10),
		Counter:   counter,
		StartedAt: now,
	}, nil
}

// ParseCounter parses an externally supplied build counter such as
// BUILD_NUMBER.
func ParseCounter(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New(errors.CodeInvalidConfig, "build counter is not set")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "build counter %q is not a positive integer", s)
	}
	if n == 0 {
		return 0, errors.New(errors.CodeInvalidConfig, "build counter must be greater than zero")
	}
	return n, nil
}

// Deriver derives identities while enforcing that counters strictly
// increase. Without a store the check only spans the process.
type Deriver struct {
	clock Clock
	store CounterStore
	mu    sync.Mutex
	last  uint64
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithStore persists the last accepted counter in s.
func WithStore(s CounterStore) DeriverOption {
	return func(d *Deriver) {
		d.store = s
	}
}

// NewDeriver creates a Deriver. A nil clock uses SystemClock.
func NewDeriver(clock Clock, opts ...DeriverOption) *Deriver {
	if clock == nil {
		clock = SystemClock
	}
	d := &Deriver{clock: clock}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Derive derives the identity for counter, rejecting any counter not greater
// than the last one accepted. The accepted counter is saved before the
// identity is returned.
func (d *Deriver) Derive(counter uint64) (BuildIdentity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	last := d.last
	if d.store != nil {
		saved, err := d.store.Last()
		if err != nil {
			return BuildIdentity{}, err
		}
		last = max(last, saved)
	}
	if counter <= last {
		return BuildIdentity{}, errors.New(errors.CodeInvalidConfig,
			fmt.Sprintf("build counter %d does not increase on %d", counter, last))
	}

	id, err := Derive(counter, d.clock)
	if err != nil {
		return BuildIdentity{}, err
	}
	if d.store != nil {
		if err := d.store.Save(counter); err != nil {
			return BuildIdentity{}, err
		}
	}
	d.last = counter
	return id, nil
}
