// Package store persists device and relay records and fans schedule edits
// out to subscribers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"homesync/pkg/device"
)

const timeLayout = time.RFC3339Nano

// SQLite is the Gateway implementation backing a single deployment.
type SQLite struct {
	db   *sql.DB
	path string

	subscribersMu sync.Mutex
	subscribers   []chan ScheduleEdit
}

// Open opens or creates the database at the given path, with WAL mode and
// foreign keys enabled.
func Open(path string) (*SQLite, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to expand home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLite{db: sqlDB, path: path}, nil
}

// Path returns the path to the database file.
func (s *SQLite) Path() string {
	return s.path
}

// Close closes the database and all edit subscriptions.
func (s *SQLite) Close() error {
	s.subscribersMu.Lock()
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	s.subscribersMu.Unlock()
	return s.db.Close()
}

// Tx executes fn within a transaction, rolling back on error.
func (s *SQLite) Tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const currentSchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
    version     INTEGER PRIMARY KEY,
    applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

-- Device records keep the schedule in its wire form; parsing happens on
-- read so a record corrupted by an external writer degrades to manual
-- mode instead of poisoning the whole listing.
CREATE TABLE IF NOT EXISTS devices (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    room        TEXT NOT NULL DEFAULT '',
    type        TEXT NOT NULL DEFAULT '',
    relay       TEXT NOT NULL,
    icon        INTEGER NOT NULL DEFAULT 0,
    kwh         REAL NOT NULL DEFAULT 0,
    start_time  TEXT NOT NULL DEFAULT '0:0',
    end_time    TEXT NOT NULL DEFAULT '0:0',
    days        TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS relay_states (
    relay       TEXT PRIMARY KEY,
    on_state    INTEGER NOT NULL,
    changed_at  TEXT NOT NULL,
    source      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_devices_relay ON devices(relay);
`

// Migrate brings the schema up to date.
func (s *SQLite) Migrate(ctx context.Context) error {
	version, err := s.schemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}
	if version < 1 {
		if err := s.applySchemaV1(ctx); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
	}
	return nil
}

func (s *SQLite) schemaVersion(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&count)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	var version int
	err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}

func (s *SQLite) applySchemaV1(ctx context.Context) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
			return fmt.Errorf("failed to execute schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// --- devices ---

const deviceColumns = `id, name, room, type, relay, icon, kwh, start_time, end_time, days`

func (s *SQLite) ReadDevice(ctx context.Context, id string) (*device.Device, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+deviceColumns+` FROM devices WHERE id = ?
	`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("device %s: %w", id, device.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStoreErr(ctx, err)
	}
	return d, nil
}

func (s *SQLite) ListDevices(ctx context.Context) ([]device.Device, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deviceColumns+` FROM devices ORDER BY name
	`)
	if err != nil {
		return nil, wrapStoreErr(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	var devices []device.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, wrapStoreErr(ctx, err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *SQLite) CreateDevice(ctx context.Context, d *device.Device) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, room, type, relay, icon, kwh, start_time, end_time, days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.Name, d.Room, d.Type, d.Relay, d.Icon, d.KWh,
		d.Schedule.Start.String(), d.Schedule.End.String(), strings.Join(d.Schedule.Days.Codes(), ","))
	if err != nil {
		return fmt.Errorf("failed to create device: %w", wrapStoreErr(ctx, err))
	}
	return nil
}

func (s *SQLite) UpdateDevice(ctx context.Context, d device.Device) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET name = ?, room = ?, type = ?, relay = ?, icon = ?, kwh = ?,
		    start_time = ?, end_time = ?, days = ?, updated_at = datetime('now')
		WHERE id = ?
	`, d.Name, d.Room, d.Type, d.Relay, d.Icon, d.KWh,
		d.Schedule.Start.String(), d.Schedule.End.String(), strings.Join(d.Schedule.Days.Codes(), ","),
		d.ID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", wrapStoreErr(ctx, err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("device %s: %w", d.ID, device.ErrNotFound)
	}

	s.publishEdit(ScheduleEdit{DeviceID: d.ID, Schedule: d.Schedule})
	return nil
}

func (s *SQLite) DeleteDevice(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return wrapStoreErr(ctx, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("device %s: %w", id, device.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*device.Device, error) {
	d := &device.Device{}
	var startTime, endTime, days string
	if err := row.Scan(&d.ID, &d.Name, &d.Room, &d.Type, &d.Relay, &d.Icon, &d.KWh,
		&startTime, &endTime, &days); err != nil {
		return nil, err
	}

	sched, err := parseStoredSchedule(startTime, endTime, days)
	if err != nil {
		// A corrupt schedule degrades the device to manual mode; the
		// record itself stays visible so it can be corrected.
		log.Warn().Err(err).Str("device", d.ID).Msg("Malformed stored schedule, treating as manual mode")
		sched = device.Schedule{}
	}
	d.Schedule = sched
	return d, nil
}

func parseStoredSchedule(startTime, endTime, days string) (device.Schedule, error) {
	start, err := device.ParseTimeOfDay(startTime)
	if err != nil {
		return device.Schedule{}, err
	}
	end, err := device.ParseTimeOfDay(endTime)
	if err != nil {
		return device.Schedule{}, err
	}
	var codes []string
	if days != "" {
		codes = strings.Split(days, ",")
	}
	set, err := device.ParseDays(codes)
	if err != nil {
		return device.Schedule{}, err
	}
	return device.Schedule{Start: start, End: end, Days: set}, nil
}

// --- relay states ---

func (s *SQLite) ReadRelayState(ctx context.Context, relayID string) (*device.RelayState, error) {
	st := &device.RelayState{Relay: relayID}
	var on int
	var changedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT on_state, changed_at, source FROM relay_states WHERE relay = ?
	`, relayID).Scan(&on, &changedAt, &st.Source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relay %s: %w", relayID, device.ErrNotFound)
	}
	if err != nil {
		return nil, wrapStoreErr(ctx, err)
	}
	st.On = on != 0
	st.ChangedAt = parseChangedAt(relayID, changedAt)
	return st, nil
}

func (s *SQLite) ListRelayStates(ctx context.Context) ([]device.RelayState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT relay, on_state, changed_at, source FROM relay_states ORDER BY relay
	`)
	if err != nil {
		return nil, wrapStoreErr(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	var states []device.RelayState
	for rows.Next() {
		var st device.RelayState
		var on int
		var changedAt string
		if err := rows.Scan(&st.Relay, &on, &changedAt, &st.Source); err != nil {
			return nil, err
		}
		st.On = on != 0
		st.ChangedAt = parseChangedAt(st.Relay, changedAt)
		states = append(states, st)
	}
	return states, rows.Err()
}

// parseChangedAt degrades a malformed stored timestamp to the zero time;
// the on/off state itself stays usable.
func parseChangedAt(relayID, raw string) time.Time {
	ts, err := time.Parse(timeLayout, raw)
	if err != nil {
		log.Warn().Err(err).Str("relay", relayID).
			Msg("Malformed stored timestamp, treating as never changed")
	}
	return ts
}

func (s *SQLite) WriteRelayState(ctx context.Context, st device.RelayState) error {
	on := 0
	if st.On {
		on = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_states (relay, on_state, changed_at, source)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(relay) DO UPDATE SET
			on_state = excluded.on_state,
			changed_at = excluded.changed_at,
			source = excluded.source
	`, st.Relay, on, st.ChangedAt.Format(timeLayout), string(st.Source))
	if err != nil {
		return fmt.Errorf("failed to write relay state: %w", wrapStoreErr(ctx, err))
	}
	return nil
}

// --- schedule edit stream ---

func (s *SQLite) SubscribeToScheduleEdits() (<-chan ScheduleEdit, func()) {
	ch := make(chan ScheduleEdit, 16)
	s.subscribersMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subscribersMu.Unlock()

	cancel := func() {
		s.subscribersMu.Lock()
		defer s.subscribersMu.Unlock()
		for i, sub := range s.subscribers {
			if sub == ch {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// publishEdit sends an edit to all subscribers without blocking. A slow
// subscriber loses the event; the periodic tick covers the gap.
func (s *SQLite) publishEdit(edit ScheduleEdit) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- edit:
		default:
			log.Warn().Str("device", edit.DeviceID).Msg("Dropping schedule edit for slow subscriber")
		}
	}
}

// wrapStoreErr tags context expiry as a timeout so callers can map it in
// their error taxonomy.
func wrapStoreErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", device.ErrTimeout, err)
	}
	return err
}
