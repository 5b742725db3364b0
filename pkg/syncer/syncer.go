// Package syncer reconciles each relay's desired state, derived from its
// devices' schedules, against the last confirmed state in the store.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"homesync/pkg/clock"
	"homesync/pkg/device"
	"homesync/pkg/metrics"
	"homesync/pkg/notify"
	"homesync/pkg/schedule"
	"homesync/pkg/store"
)

const (
	defaultInterval     = 30 * time.Second
	defaultStoreTimeout = 5 * time.Second
)

// Mirror reflects confirmed relay states onto local hardware. Failures
// never affect the recorded state.
type Mirror interface {
	Apply(relayID string, on bool) error
}

// Options configures a Syncer.
type Options struct {
	Store        store.Gateway
	Clock        clock.Clock
	Notifier     *notify.Notifier
	Metrics      *metrics.Metrics
	Mirror       Mirror        // optional hardware bridge
	Interval     time.Duration // tick period, default 30s
	StoreTimeout time.Duration // bound on every store call, default 5s
}

// Syncer drives relays to the state their schedules imply. Per relay the
// lifecycle is Unknown until a reconciling read (or a confirmed first
// write) establishes the actual state; the recorded state only ever
// advances on confirmed write success.
type Syncer struct {
	store        store.Gateway
	clock        clock.Clock
	notifier     *notify.Notifier
	metrics      *metrics.Metrics
	mirror       Mirror
	interval     time.Duration
	storeTimeout time.Duration

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex // per-relay write serialization
}

// New constructs a Syncer.
func New(opts Options) (*Syncer, error) {
	if opts.Store == nil {
		return nil, errors.New("syncer: nil store gateway")
	}
	if opts.Clock == nil {
		return nil, errors.New("syncer: nil clock")
	}
	if opts.Notifier == nil {
		return nil, errors.New("syncer: nil notifier")
	}
	if opts.Metrics == nil {
		return nil, errors.New("syncer: nil metrics")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	return &Syncer{
		store:        opts.Store,
		clock:        opts.Clock,
		notifier:     opts.Notifier,
		metrics:      opts.Metrics,
		mirror:       opts.Mirror,
		interval:     opts.Interval,
		storeTimeout: opts.StoreTimeout,
		locks:        make(map[string]*sync.Mutex),
	}, nil
}

// Run drives synchronization cycles on a fixed tick and on every schedule
// edit, until ctx is cancelled. In-flight writes of the current cycle
// complete before Run returns.
func (s *Syncer) Run(ctx context.Context) error {
	edits, cancel := s.store.SubscribeToScheduleEdits()
	defer cancel()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial synchronization failed, will retry on next tick")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Synchronizer stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				log.Warn().Err(err).Msg("Synchronization cycle failed, will retry on next tick")
			}
		case edit, ok := <-edits:
			if !ok {
				edits = nil
				continue
			}
			log.Debug().Str("device", edit.DeviceID).Msg("Schedule edit, reconciling now")
			if err := s.Sync(ctx); err != nil {
				log.Warn().Err(err).Msg("Edit-triggered synchronization failed, will retry on next tick")
			}
		}
	}
}

// Sync runs one full reconciliation cycle. Relays reconcile in parallel;
// writes for a single relay are serialized. Repeated calls with unchanged
// conditions issue no commands.
func (s *Syncer) Sync(ctx context.Context) error {
	started := time.Now()
	defer func() {
		s.metrics.TickDuration.Observe(time.Since(started).Seconds())
	}()

	rctx, rcancel := context.WithTimeout(ctx, s.storeTimeout)
	devices, err := s.store.ListDevices(rctx)
	rcancel()
	if err != nil {
		s.metrics.StoreErrors.Inc()
		return fmt.Errorf("list devices: %w", err)
	}

	groups := make(map[string][]device.Device)
	for _, d := range devices {
		groups[d.Relay] = append(groups[d.Relay], d)
	}

	var wg sync.WaitGroup
	for relayID, devs := range groups {
		wg.Add(1)
		go func(relayID string, devs []device.Device) {
			defer wg.Done()
			s.reconcile(ctx, relayID, devs)
		}(relayID, devs)
	}
	wg.Wait()
	return nil
}

// reconcile computes one authoritative desired state for the relay and
// issues at most one state-change command.
func (s *Syncer) reconcile(ctx context.Context, relayID string, devs []device.Device) {
	mu := s.relayLock(relayID)
	mu.Lock()
	defer mu.Unlock()

	now := s.clock.Now()
	contributions := make([]device.DesiredState, 0, len(devs))
	names := make([]string, 0, len(devs))
	for _, d := range devs {
		contributions = append(contributions, schedule.Evaluate(d.Schedule, now))
		names = append(names, d.Name)
	}

	if conflicting(contributions) {
		s.metrics.Conflicts.Inc()
		log.Debug().Str("relay", relayID).Strs("devices", names).
			Msg("Schedules disagree for shared relay, ON wins")
	}

	desired := Aggregate(contributions)
	if desired == device.NoOpinion {
		// Relay stays under manual control.
		return
	}

	// Reconciling read: never command a relay while its actual state is
	// unknown. A missing record means the relay was never observed; the
	// first confirmed write creates it.
	known := false
	actualOn := false
	rctx, rcancel := context.WithTimeout(ctx, s.storeTimeout)
	current, err := s.store.ReadRelayState(rctx, relayID)
	rcancel()
	switch {
	case err == nil:
		known = true
		actualOn = current.On
	case errors.Is(err, device.ErrNotFound):
	default:
		s.metrics.StoreErrors.Inc()
		log.Warn().Err(err).Str("relay", relayID).Msg("Relay state read failed, staying hands off")
		return
	}

	want := desired == device.On
	if known && actualOn == want {
		return
	}

	next := device.RelayState{
		Relay:     relayID,
		On:        want,
		ChangedAt: now,
		Source:    device.SourceSchedule,
	}
	wctx, wcancel := context.WithTimeout(ctx, s.storeTimeout)
	err = s.store.WriteRelayState(wctx, next)
	wcancel()
	if err != nil {
		// The recorded state is unchanged; the next tick re-attempts the
		// same transition. A timed-out write is a failure, never a success.
		s.metrics.StoreErrors.Inc()
		log.Warn().Err(err).Str("relay", relayID).Str("to", device.StateLabel(want)).
			Msg("Relay state write failed, will retry next tick")
		return
	}

	from := "UNKNOWN"
	if known {
		from = device.StateLabel(actualOn)
	}
	to := device.StateLabel(want)
	s.metrics.Transitions.WithLabelValues(relayID, to).Inc()
	log.Info().Str("relay", relayID).Str("from", from).Str("to", to).
		Strs("devices", names).Msg("Relay state transition")

	if s.mirror != nil {
		if err := s.mirror.Apply(relayID, want); err != nil {
			log.Warn().Err(err).Str("relay", relayID).Msg("Relay board mirror failed")
		}
	}

	// Delivery is fire and forget: it must not hold the relay lock or
	// delay the rest of the cycle, so the send runs on its own goroutine.
	go s.notifier.Notify(ctx, notify.Event{
		Relay:   relayID,
		From:    from,
		To:      to,
		At:      now,
		Devices: names,
	})
}

func (s *Syncer) relayLock(relayID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[relayID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[relayID] = mu
	}
	return mu
}
