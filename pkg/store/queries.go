package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AlertRecord is one persisted alert row.
type AlertRecord struct {
	ID               int64  `json:"id"`
	SessionID        int64  `json:"session_id"`
	Timestamp        string `json:"timestamp"`
	Category         string `json:"category"`
	ObjectType       string `json:"object_type"`
	DistanceCategory string `json:"distance_category"`
	Direction        string `json:"direction"`
	AlertText        string `json:"alert_text"`
}

// SessionRecord is one persisted session row. End time and duration
// are nil while the session is open.
type SessionRecord struct {
	ID              int64   `json:"id"`
	StartTime       string  `json:"start_time"`
	EndTime         *string `json:"end_time"`
	DurationSeconds *int64  `json:"duration_seconds"`
	TotalDetections int64   `json:"total_detections"`
	TotalAlerts     int64   `json:"total_alerts"`
	CriticalAlerts  int64   `json:"critical_alerts"`
}

// VoiceCommandRecord is one persisted voice command row.
type VoiceCommandRecord struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Timestamp string `json:"timestamp"`
	Command   string `json:"command"`
	Response  string `json:"response"`
}

// CountRow is a generic label/count pair used by the stat queries.
type CountRow struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// ObjectCount pairs an object type with its occurrence count.
type ObjectCount struct {
	ObjectType string `json:"object_type"`
	Count      int64  `json:"count"`
}

// OverviewStats aggregates all sessions plus the one currently open.
type OverviewStats struct {
	Overall        OverallStats   `json:"overall"`
	CurrentSession *SessionRecord `json:"current_session"`
}

// OverallStats sums counters across every session.
type OverallStats struct {
	TotalSessions       int64 `json:"total_sessions"`
	TotalDuration       int64 `json:"total_duration"`
	TotalDetections     int64 `json:"total_detections"`
	TotalAlerts         int64 `json:"total_alerts"`
	TotalCriticalAlerts int64 `json:"total_critical_alerts"`
}

// ObjectStats describes what the camera has been seeing.
type ObjectStats struct {
	CommonObjects         []ObjectCount `json:"common_objects"`
	DistanceDistribution  []CountRow    `json:"distance_distribution"`
	DirectionDistribution []CountRow    `json:"direction_distribution"`
}

// TimelineBucket is one hour's worth of activity.
type TimelineBucket struct {
	Hour             string `json:"hour"`
	DistanceCategory string `json:"distance_category,omitempty"`
	Count            int64  `json:"count"`
}

// Timeline holds hourly detection and alert counts for charts.
type Timeline struct {
	Detections []TimelineBucket `json:"detections_timeline"`
	Alerts     []TimelineBucket `json:"alerts_timeline"`
}

// SafetyStats summarizes recent danger exposure.
type SafetyStats struct {
	CriticalAlerts24h int64         `json:"critical_alerts_24h"`
	WarningAlerts24h  int64         `json:"warning_alerts_24h"`
	DangerousHours    []CountRow    `json:"dangerous_hours"`
	DangerousObjects  []ObjectCount `json:"dangerous_objects"`
}

// RecentAlerts returns the newest alerts, most recent first.
func (s *Store) RecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, category, object_type,
		       distance_category, direction, alert_text
		FROM alerts ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent alerts: %w", err)
	}
	defer rows.Close()

	var out []AlertRecord
	for rows.Next() {
		var r AlertRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Timestamp, &r.Category,
			&r.ObjectType, &r.DistanceCategory, &r.Direction, &r.AlertText); err != nil {
			return nil, fmt.Errorf("store: scan alert: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sessions returns every session, newest first.
func (s *Store) Sessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, duration_seconds,
		       total_detections, total_alerts, critical_alerts
		FROM sessions ORDER BY start_time DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.StartTime, &r.EndTime, &r.DurationSeconds,
			&r.TotalDetections, &r.TotalAlerts, &r.CriticalAlerts); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionByID returns one session row.
func (s *Store) SessionByID(ctx context.Context, id int64) (*SessionRecord, error) {
	var r SessionRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT id, start_time, end_time, duration_seconds,
		       total_detections, total_alerts, critical_alerts
		FROM sessions WHERE id = ?`, id).
		Scan(&r.ID, &r.StartTime, &r.EndTime, &r.DurationSeconds,
			&r.TotalDetections, &r.TotalAlerts, &r.CriticalAlerts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: session %d: %w", id, err)
	}
	return &r, nil
}

// VoiceCommands returns recent voice commands, newest first.
func (s *Store) VoiceCommands(ctx context.Context, limit int) ([]VoiceCommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, timestamp, command, response
		FROM voice_commands ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: voice commands: %w", err)
	}
	defer rows.Close()

	var out []VoiceCommandRecord
	for rows.Next() {
		var r VoiceCommandRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Timestamp, &r.Command, &r.Response); err != nil {
			return nil, fmt.Errorf("store: scan voice command: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Overview returns aggregate statistics plus the open session.
func (s *Store) Overview(ctx context.Context) (*OverviewStats, error) {
	var o OverallStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(duration_seconds), 0),
		       COALESCE(SUM(total_detections), 0),
		       COALESCE(SUM(total_alerts), 0),
		       COALESCE(SUM(critical_alerts), 0)
		FROM sessions`).
		Scan(&o.TotalSessions, &o.TotalDuration, &o.TotalDetections,
			&o.TotalAlerts, &o.TotalCriticalAlerts)
	if err != nil {
		return nil, fmt.Errorf("store: overview: %w", err)
	}

	stats := &OverviewStats{Overall: o}
	if id := s.CurrentSession(); id != 0 {
		cur, err := s.SessionByID(ctx, id)
		if err != nil {
			return nil, err
		}
		stats.CurrentSession = cur
	}
	return stats, nil
}

// ObjectStats returns what objects have been detected, with zone and
// direction distributions.
func (s *Store) ObjectStats(ctx context.Context) (*ObjectStats, error) {
	common, err := s.objectCounts(ctx, `
		SELECT object_type, COUNT(*) AS count FROM detections
		GROUP BY object_type ORDER BY count DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	distance, err := s.countRows(ctx, `
		SELECT distance_category, COUNT(*) AS count FROM detections
		WHERE distance_category IS NOT NULL
		GROUP BY distance_category`)
	if err != nil {
		return nil, err
	}
	direction, err := s.countRows(ctx, `
		SELECT direction, COUNT(*) AS count FROM detections
		WHERE direction IS NOT NULL
		GROUP BY direction`)
	if err != nil {
		return nil, err
	}
	return &ObjectStats{
		CommonObjects:         common,
		DistanceDistribution:  distance,
		DirectionDistribution: direction,
	}, nil
}

// Timeline returns hourly detection and alert counts over the last
// hours hours.
func (s *Store) Timeline(ctx context.Context, hours int) (*Timeline, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := s.now().Add(-time.Duration(hours) * time.Hour).Format(timeLayout)

	detRows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d %H:00', timestamp) AS hour, COUNT(*) AS count
		FROM detections WHERE timestamp > ?
		GROUP BY hour ORDER BY hour`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: detection timeline: %w", err)
	}
	defer detRows.Close()

	tl := &Timeline{}
	for detRows.Next() {
		var b TimelineBucket
		if err := detRows.Scan(&b.Hour, &b.Count); err != nil {
			return nil, fmt.Errorf("store: scan timeline: %w", err)
		}
		tl.Detections = append(tl.Detections, b)
	}
	if err := detRows.Err(); err != nil {
		return nil, err
	}

	alertRows, err := s.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d %H:00', timestamp) AS hour,
		       distance_category, COUNT(*) AS count
		FROM alerts WHERE timestamp > ?
		GROUP BY hour, distance_category ORDER BY hour`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("store: alert timeline: %w", err)
	}
	defer alertRows.Close()

	for alertRows.Next() {
		var b TimelineBucket
		var category sql.NullString
		if err := alertRows.Scan(&b.Hour, &category, &b.Count); err != nil {
			return nil, fmt.Errorf("store: scan timeline: %w", err)
		}
		b.DistanceCategory = category.String
		tl.Alerts = append(tl.Alerts, b)
	}
	return tl, alertRows.Err()
}

// SafetyStats returns recent danger exposure metrics.
func (s *Store) SafetyStats(ctx context.Context) (*SafetyStats, error) {
	cutoff := s.now().Add(-24 * time.Hour).Format(timeLayout)

	stats := &SafetyStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE distance_category = 'critical' AND timestamp > ?`, cutoff).
		Scan(&stats.CriticalAlerts24h)
	if err != nil {
		return nil, fmt.Errorf("store: safety stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alerts
		WHERE distance_category = 'warning' AND timestamp > ?`, cutoff).
		Scan(&stats.WarningAlerts24h)
	if err != nil {
		return nil, fmt.Errorf("store: safety stats: %w", err)
	}

	stats.DangerousHours, err = s.countRows(ctx, `
		SELECT strftime('%H', timestamp) AS hour, COUNT(*) AS count
		FROM alerts WHERE distance_category IN ('critical', 'warning')
		GROUP BY hour ORDER BY count DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	stats.DangerousObjects, err = s.objectCounts(ctx, `
		SELECT object_type, COUNT(*) AS count
		FROM alerts WHERE distance_category = 'critical'
		GROUP BY object_type ORDER BY count DESC LIMIT 5`)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countRows(ctx context.Context, query string) ([]CountRow, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: count query: %w", err)
	}
	defer rows.Close()

	var out []CountRow
	for rows.Next() {
		var r CountRow
		if err := rows.Scan(&r.Label, &r.Count); err != nil {
			return nil, fmt.Errorf("store: scan count row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) objectCounts(ctx context.Context, query string) ([]ObjectCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: object count query: %w", err)
	}
	defer rows.Close()

	var out []ObjectCount
	for rows.Next() {
		var r ObjectCount
		if err := rows.Scan(&r.ObjectType, &r.Count); err != nil {
			return nil, fmt.Errorf("store: scan object count: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
