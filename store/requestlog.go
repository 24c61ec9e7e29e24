package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// RequestLogEntry mirrors one `request_log` row, written by the router for
// every inbound request (SPEC_FULL.md §4.1 ambient notes).
type RequestLogEntry struct {
	Service    string
	Operation  string
	Bucket     string
	ObjectKey  string
	StatusCode int
	ErrorCode  string
	RequestID  string
	UserAgent  string
	SourceIP   string
}

// LogRequest appends one row. It never fails loudly: a logging write is
// not allowed to turn a successful request into a failed one, so errors
// are swallowed after being surfaced to the caller for a debug-level log.
func (e *Engine) LogRequest(ctx context.Context, entry RequestLogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO request_log (timestamp, service, operation, bucket, object_key, status_code,
			error_code, request_id, user_agent, source_ip)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cmn.NowRFC3339(), entry.Service, entry.Operation, nullableStr(entry.Bucket), nullableStr(entry.ObjectKey),
		entry.StatusCode, nullableStr(entry.ErrorCode), entry.RequestID, nullableStr(entry.UserAgent),
		nullableStr(entry.SourceIP))
	if err != nil {
		return dbErr(err)
	}
	return nil
}
