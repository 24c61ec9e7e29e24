package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// LogGroup mirrors one `cw_log_groups` row.
type LogGroup struct {
	Name          string `db:"name"`
	ARN           string `db:"arn"`
	RetentionDays *int   `db:"retention_days"`
	CreatedAt     string `db:"created_at"`
}

// LogStream mirrors one `cw_log_streams` row.
type LogStream struct {
	Name         string `db:"name"`
	LogGroupName string `db:"log_group_name"`
	ARN          string `db:"arn"`
	CreatedAt    string `db:"created_at"`
}

// LogEvent mirrors one `cw_log_events` row — append-only.
type LogEvent struct {
	ID            int64  `db:"id"`
	LogGroupName  string `db:"log_group_name"`
	LogStreamName string `db:"log_stream_name"`
	Timestamp     string `db:"timestamp"`
	Message       string `db:"message"`
}

func (e *Engine) CreateLogGroup(ctx context.Context, name string) (*LogGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARNResource("logs", e.region, "log-group:"+name)
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cw_log_groups (name, arn, created_at) VALUES (?, ?, ?)`, name, arn, now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("log_group", name)
		}
		return nil, dbErr(err)
	}
	return &LogGroup{Name: name, ARN: arn, CreatedAt: now}, nil
}

func (e *Engine) DeleteLogGroup(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM cw_log_groups WHERE name = ?`, name)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListLogGroups(ctx context.Context) ([]LogGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []LogGroup
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM cw_log_groups ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

func (e *Engine) CreateLogStream(ctx context.Context, groupName, streamName string) (*LogStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var exists int
	_ = e.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM cw_log_groups WHERE name = ?`, groupName)
	if exists == 0 {
		return nil, cmn.ErrNotFound("log_group", groupName)
	}
	arn := cmn.BuildARNResource("logs", e.region, "log-group:"+groupName+":log-stream:"+streamName)
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cw_log_streams (name, log_group_name, arn, created_at) VALUES (?, ?, ?, ?)`,
		streamName, groupName, arn, now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("log_stream", streamName)
		}
		return nil, dbErr(err)
	}
	return &LogStream{Name: streamName, LogGroupName: groupName, ARN: arn, CreatedAt: now}, nil
}

func (e *Engine) ListLogStreams(ctx context.Context, groupName string) ([]LogStream, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []LogStream
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM cw_log_streams WHERE log_group_name = ? ORDER BY name`, groupName)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// PutLogEvents appends a batch of events to a stream, in caller-supplied
// order (real CloudWatch Logs requires non-decreasing timestamps within a
// PutLogEvents call; the emulator does not enforce this, matching spec.md
// §1's non-goal on exhaustive validation).
func (e *Engine) PutLogEvents(ctx context.Context, groupName, streamName string, events []LogEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return dbErr(err)
	}
	defer tx.Rollback()
	for _, ev := range events {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cw_log_events (log_group_name, log_stream_name, timestamp, message) VALUES (?, ?, ?, ?)`,
			groupName, streamName, ev.Timestamp, ev.Message); err != nil {
			return dbErr(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return dbErr(err)
	}
	return nil
}

// GetLogEvents returns events for a stream ordered by timestamp, optionally
// bounded by [startTime, endTime) (RFC3339).
func (e *Engine) GetLogEvents(ctx context.Context, groupName, streamName, startTime, endTime string) ([]LogEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []LogEvent
	query := `SELECT * FROM cw_log_events WHERE log_group_name = ? AND log_stream_name = ?`
	args := []interface{}{groupName, streamName}
	if startTime != "" {
		query += ` AND timestamp >= ?`
		args = append(args, startTime)
	}
	if endTime != "" {
		query += ` AND timestamp < ?`
		args = append(args, endTime)
	}
	query += ` ORDER BY timestamp`
	if err := e.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
