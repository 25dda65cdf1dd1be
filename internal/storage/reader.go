package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNoData indicates that no maps exist for the given parameters.
var ErrNoData = errors.New("no data available")

// ReaderOption configures a MapReader with filtering criteria.
type ReaderOption func(*MapReader)

// WithStartTime excludes maps recorded before t.
func WithStartTime(t time.Time) ReaderOption {
	return func(r *MapReader) {
		us := t.UnixMicro()
		r.startUS = &us
	}
}

// WithEndTime excludes maps recorded after t.
func WithEndTime(t time.Time) ReaderOption {
	return func(r *MapReader) {
		us := t.UnixMicro()
		r.endUS = &us
	}
}

// WithTimeRange sets both start and end time filters.
func WithTimeRange(startTime, endTime time.Time) ReaderOption {
	return func(r *MapReader) {
		start, end := startTime.UnixMicro(), endTime.UnixMicro()
		r.startUS = &start
		r.endUS = &end
	}
}

// MapReader iterates over a session's obstacle maps in timestamp order.
type MapReader struct {
	db *sql.DB

	sessionID int64
	session   *Session

	startUS *int64
	endUS   *int64

	current *ObstacleMap
	rows    *sql.Rows
	err     error
}

func newMapReader(ctx context.Context, db *sql.DB, sessionID int64, opts ...ReaderOption) (*MapReader, error) {
	r := &MapReader{
		db:        db,
		sessionID: sessionID,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.init(ctx); err != nil {
		return nil, fmt.Errorf("initializing reader: %w", err)
	}
	return r, nil
}

func (r *MapReader) init(ctx context.Context) error {
	if r.db == nil {
		return errors.New("database connection required")
	}
	if r.sessionID <= 0 {
		return errors.New("session ID required")
	}

	steps := []struct {
		msg string
		fn  func(context.Context) error
	}{
		{msg: "loading session", fn: r.loadSession},
		{msg: "initializing filters", fn: r.initFilters},
		{msg: "initializing query", fn: r.initQuery},
	}
	for _, s := range steps {
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.msg, err)
		}
	}
	return nil
}

func (r *MapReader) loadSession(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var sess Session
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, r.sessionID).Scan(&sess.ID, &sess.StartTime, &sess.Source, &config); err != nil {
		return fmt.Errorf("querying session: %w", err)
	}
	if config.Valid {
		sess.Config = &config.String
	}

	r.session = &sess
	return
}

func (r *MapReader) initFilters(ctx context.Context) (err error) {
	if r.startUS != nil && r.endUS != nil {
		if *r.startUS > *r.endUS {
			return fmt.Errorf("start time %d is after end time %d", *r.startUS, *r.endUS)
		}
		return nil
	}

	stmt, err := r.db.PrepareContext(ctx, selectTimeBoundsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	var startUS, endUS sql.NullInt64
	if err = stmt.QueryRowContext(ctx, r.sessionID).Scan(&startUS, &endUS); err != nil {
		return fmt.Errorf("scanning time bounds: %w", err)
	}
	if !startUS.Valid || !endUS.Valid {
		return ErrNoData
	}

	if r.startUS == nil {
		r.startUS = &startUS.Int64
	}
	if r.endUS == nil {
		r.endUS = &endUS.Int64
	}
	return nil
}

func (r *MapReader) initQuery(ctx context.Context) (err error) {
	stmt, err := r.db.PrepareContext(ctx, selectMapsSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if r.rows, err = stmt.QueryContext(ctx, r.sessionID, r.startUS, r.endUS); err != nil {
		return err
	}
	return nil
}

// Session returns metadata about the recording session this reader is
// accessing.
func (r *MapReader) Session() *Session {
	return r.session
}

// Next advances the iterator. It returns true if there is another map to
// read, false when the iteration is complete or an error occurred.
func (r *MapReader) Next(ctx context.Context) bool {
	if r.err != nil || r.rows == nil {
		return false
	}

	select {
	case <-ctx.Done():
		r.err = ctx.Err()
		return false
	default:
	}

	if !r.rows.Next() {
		return false
	}

	var m ObstacleMap
	var blob []byte
	if r.err = r.rows.Scan(&m.ID, &m.TimestampUS, &blob, &m.MinCM, &m.MaxCM, &m.IncrementF, &m.AngleOffset); r.err != nil {
		r.err = fmt.Errorf("scanning map: %w", r.err)
		return false
	}
	if m.Distances, r.err = decodeDistances(blob); r.err != nil {
		return false
	}

	m.SessionID = r.sessionID
	r.current = &m
	return true
}

// Current returns the map at the current iterator position. If called after
// Next returns false, the behavior is undefined.
func (r *MapReader) Current() *ObstacleMap {
	return r.current
}

// Error returns any error that occurred during iteration.
func (r *MapReader) Error() error {
	if r.err != nil {
		return r.err
	}
	if r.rows != nil {
		return r.rows.Err()
	}
	return nil
}

// Close releases the database resources held by the reader.
func (r *MapReader) Close() error {
	if r.rows != nil {
		err := r.rows.Close()
		r.current = nil
		r.rows = nil
		return err
	}
	return nil
}
