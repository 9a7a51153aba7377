// Package ledger keeps a persistent history of the points and rewards handed
// out by the game in a SQLite database.  Identity labels are only meaningful
// within the process run that issued them, so every run records under its
// own session id.
package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/swdee/go-smilecam"
)

// schema.sql creates the session, points and reward tables if missing
//
//go:embed schema.sql
var schemaSQL string

// Reward is a stored reward event
type Reward struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	FaceID    string    `json:"face_id"`
	Points    int       `json:"points"`
	Message   string    `json:"message"`
	Time      time.Time `json:"time"`
}

// Standing is the reward count of one identity within a session
type Standing struct {
	SessionID  string    `json:"session_id"`
	FaceID     string    `json:"face_id"`
	Rewards    int       `json:"rewards"`
	LastReward time.Time `json:"last_reward"`
}

// Ledger records game events to SQLite
type Ledger struct {
	db      *sql.DB
	session string
	log     *zap.Logger
}

// Open the database at path, creating the schema if needed, and start a new
// session
func Open(path string, log *zap.Logger) (*Ledger, error) {

	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, errors.Wrapf(err, "error opening ledger %s", path)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error creating ledger schema")
	}

	l := &Ledger{
		db:      db,
		session: uuid.NewString(),
		log:     log,
	}

	_, err = db.Exec(`INSERT INTO sessions (id, started_ns) VALUES (?, ?)`,
		l.session, time.Now().UnixNano())

	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error starting ledger session")
	}

	log.Info("initialized reward ledger", zap.String("path", path),
		zap.String("session", l.session))

	return l, nil
}

// Session returns the id of the current session
func (l *Ledger) Session() string {
	return l.session
}

// Record stores a game event.  Frame events are ignored.
func (l *Ledger) Record(ctx context.Context, ev smilecam.Event) error {

	var err error
	ts := ev.Time.UnixNano()

	switch ev.Type {
	case smilecam.EventPointsUpdate:
		_, err = l.db.ExecContext(ctx, `
			INSERT INTO points_updates (session_id, face_id, points, created_ns)
			VALUES (?, ?, ?, ?)`,
			l.session, ev.FaceID, ev.Points, ts)

	case smilecam.EventReward:
		_, err = l.db.ExecContext(ctx, `
			INSERT INTO rewards (session_id, face_id, points, message, created_ns)
			VALUES (?, ?, ?, ?, ?)`,
			l.session, ev.FaceID, ev.Points, ev.Message, ts)

	case smilecam.EventReset:
		_, err = l.db.ExecContext(ctx, `
			INSERT INTO resets (session_id, created_ns) VALUES (?, ?)`,
			l.session, ts)

	default:
		return nil
	}

	if err != nil {
		return errors.Wrapf(err, "error recording %s event", ev.Type)
	}

	return nil
}

// RecentRewards returns up to limit rewards, newest first
func (l *Ledger) RecentRewards(ctx context.Context, limit int) ([]Reward, error) {

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, session_id, face_id, points, message, created_ns
		FROM rewards
		ORDER BY created_ns DESC, id DESC
		LIMIT ?`, limit)

	if err != nil {
		return nil, errors.Wrap(err, "error querying rewards")
	}

	defer rows.Close()

	rewards := make([]Reward, 0)

	for rows.Next() {
		var r Reward
		var ts int64

		if err := rows.Scan(&r.ID, &r.SessionID, &r.FaceID, &r.Points, &r.Message, &ts); err != nil {
			return nil, errors.Wrap(err, "error reading reward")
		}

		r.Time = time.Unix(0, ts)
		rewards = append(rewards, r)
	}

	return rewards, errors.Wrap(rows.Err(), "error reading rewards")
}

// Leaderboard returns up to limit identities ordered by reward count, ties
// going to whoever reached their last reward first
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {

	rows, err := l.db.QueryContext(ctx, `
		SELECT session_id, face_id, COUNT(*) AS total, MAX(created_ns) AS last_ns
		FROM rewards
		GROUP BY session_id, face_id
		ORDER BY total DESC, last_ns ASC
		LIMIT ?`, limit)

	if err != nil {
		return nil, errors.Wrap(err, "error querying leaderboard")
	}

	defer rows.Close()

	standings := make([]Standing, 0)

	for rows.Next() {
		var s Standing
		var ts int64

		if err := rows.Scan(&s.SessionID, &s.FaceID, &s.Rewards, &ts); err != nil {
			return nil, errors.Wrap(err, "error reading standing")
		}

		s.LastReward = time.Unix(0, ts)
		standings = append(standings, s)
	}

	return standings, errors.Wrap(rows.Err(), "error reading leaderboard")
}

// Consume records every event received on events until the channel is
// closed or ctx is done.  Failed writes are logged and skipped.
func (l *Ledger) Consume(ctx context.Context, events <-chan smilecam.Event) {

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				return
			}

			if err := l.Record(ctx, ev); err != nil {
				l.log.Warn("failed to record event", zap.Error(err))
			}
		}
	}
}

// Close the database
func (l *Ledger) Close() error {
	return l.db.Close()
}
