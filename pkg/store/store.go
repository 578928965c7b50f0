// Package store persists sessions, detections, alerts, voice commands
// and scene summaries to SQLite for caregiver review.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/visionaid/go-visionaid/pkg/alert"
	"github.com/visionaid/go-visionaid/pkg/detection"
	"github.com/visionaid/go-visionaid/pkg/proximity"
)

// timeLayout is the timestamp format stored in SQLite. It sorts
// lexicographically and works with strftime grouping.
const timeLayout = "2006-01-02 15:04:05"

// Store wraps the SQLite database. All write methods attach records
// to the currently open session and bump its counters; callers treat
// write errors as log-and-skip, never fatal.
type Store struct {
	db *sql.DB

	// sessionMu guards the open-session handle. Closing a session is
	// one-way: a write arriving afterwards opens a fresh session.
	sessionMu sync.Mutex
	sessionID int64

	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			start_time        TIMESTAMP NOT NULL,
			end_time          TIMESTAMP,
			duration_seconds  INTEGER,
			total_detections  INTEGER DEFAULT 0,
			total_alerts      INTEGER DEFAULT 0,
			critical_alerts   INTEGER DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS detections (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        INTEGER,
			timestamp         TIMESTAMP NOT NULL,
			object_type       VARCHAR(50) NOT NULL,
			distance_category VARCHAR(20),
			distance_score    REAL,
			direction         VARCHAR(20),
			bbox_x            REAL,
			bbox_y            REAL,
			bbox_w            REAL,
			bbox_h            REAL,
			confidence        REAL,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
		CREATE TABLE IF NOT EXISTS alerts (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        INTEGER,
			timestamp         TIMESTAMP NOT NULL,
			category          VARCHAR(20),
			object_type       VARCHAR(50),
			distance_category VARCHAR(20),
			direction         VARCHAR(20),
			alert_text        TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
		CREATE TABLE IF NOT EXISTS voice_commands (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        INTEGER,
			timestamp         TIMESTAMP NOT NULL,
			command           TEXT NOT NULL,
			response          TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
		CREATE TABLE IF NOT EXISTS scene_summaries (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id        INTEGER,
			timestamp         TIMESTAMP NOT NULL,
			summary_text      TEXT NOT NULL,
			object_count      INTEGER,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close ends any open session and closes the database.
func (s *Store) Close() error {
	if err := s.EndSession(context.Background()); err != nil {
		return err
	}
	return s.db.Close()
}

// StartSession opens a new session and returns its id.
func (s *Store) StartSession(ctx context.Context) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.startSessionLocked(ctx)
}

func (s *Store) startSessionLocked(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (start_time) VALUES (?)`,
		s.now().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("store: start session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("store: session id: %w", err)
	}
	s.sessionID = id
	return id, nil
}

// EndSession finalizes the open session: sets end_time, computes the
// duration and recomputes its counters from the recorded facts. A
// closed session never receives further writes. Ending when no
// session is open is a no-op.
func (s *Store) EndSession(ctx context.Context) error {
	s.sessionMu.Lock()
	id := s.sessionID
	s.sessionID = 0
	s.sessionMu.Unlock()

	if id == 0 {
		return nil
	}

	var startRaw string
	err := s.db.QueryRowContext(ctx,
		`SELECT start_time FROM sessions WHERE id = ?`, id).Scan(&startRaw)
	if err != nil {
		return fmt.Errorf("store: end session %d: %w", id, err)
	}
	start, err := time.ParseInLocation(timeLayout, startRaw, time.Local)
	if err != nil {
		return fmt.Errorf("store: parse session start: %w", err)
	}

	end := s.now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE sessions SET
			end_time = ?,
			duration_seconds = ?,
			total_detections = (SELECT COUNT(*) FROM detections WHERE session_id = ?),
			total_alerts = (SELECT COUNT(*) FROM alerts WHERE session_id = ?),
			critical_alerts = (SELECT COUNT(*) FROM alerts WHERE session_id = ? AND distance_category = 'critical')
		WHERE id = ?`,
		end.Format(timeLayout), int64(end.Sub(start).Seconds()), id, id, id, id)
	if err != nil {
		return fmt.Errorf("store: finalize session %d: %w", id, err)
	}
	return nil
}

// CurrentSession returns the open session id, or 0 if none.
func (s *Store) CurrentSession() int64 {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.sessionID
}

// session returns the open session, starting one if necessary.
func (s *Store) session(ctx context.Context) (int64, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	if s.sessionID != 0 {
		return s.sessionID, nil
	}
	return s.startSessionLocked(ctx)
}

// LogDetection records one classified detection, admitted or not.
func (s *Store) LogDetection(ctx context.Context, d detection.Detection, e proximity.Event) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO detections
		(session_id, timestamp, object_type, distance_category, distance_score,
		 direction, bbox_x, bbox_y, bbox_w, bbox_h, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Timestamp.Format(timeLayout), e.Object, e.Zone.String(), e.Fraction,
		string(e.Direction), d.X, d.Y, d.W, d.H, d.Confidence)
	if err != nil {
		return fmt.Errorf("store: log detection: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE sessions SET total_detections = total_detections + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: bump detection counter: %w", err)
	}
	return nil
}

// LogAlert records one announced or safety alert.
func (s *Store) LogAlert(ctx context.Context, a alert.Alert) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}

	category := ""
	if a.Category == alert.CategoryProximity {
		category = a.Zone
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts
		(session_id, timestamp, category, object_type, distance_category, direction, alert_text)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, a.Timestamp.Format(timeLayout), string(a.Category), a.Object,
		category, a.Direction, a.Message)
	if err != nil {
		return fmt.Errorf("store: log alert: %w", err)
	}

	bump := `UPDATE sessions SET total_alerts = total_alerts + 1 WHERE id = ?`
	if category == "critical" {
		bump = `UPDATE sessions SET total_alerts = total_alerts + 1,
			critical_alerts = critical_alerts + 1 WHERE id = ?`
	}
	if _, err := s.db.ExecContext(ctx, bump, id); err != nil {
		return fmt.Errorf("store: bump alert counter: %w", err)
	}
	return nil
}

// LogVoiceCommand records a recognized command and its spoken response.
func (s *Store) LogVoiceCommand(ctx context.Context, command, response string) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO voice_commands (session_id, timestamp, command, response)
		VALUES (?, ?, ?, ?)`,
		id, s.now().Format(timeLayout), command, response)
	if err != nil {
		return fmt.Errorf("store: log voice command: %w", err)
	}
	return nil
}

// LogSceneSummary records a periodic scene description.
func (s *Store) LogSceneSummary(ctx context.Context, summary string, objectCount int) error {
	id, err := s.session(ctx)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scene_summaries (session_id, timestamp, summary_text, object_count)
		VALUES (?, ?, ?, ?)`,
		id, s.now().Format(timeLayout), summary, objectCount)
	if err != nil {
		return fmt.Errorf("store: log scene summary: %w", err)
	}
	return nil
}
