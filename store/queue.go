package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Queue mirrors one `sqs_queues` row.
type Queue struct {
	Name                        string  `db:"name"`
	URL                         string  `db:"url"`
	ARN                         string  `db:"arn"`
	CreatedAt                   string  `db:"created_at"`
	VisibilityTimeout           int     `db:"visibility_timeout"`
	MessageRetentionPeriod      int     `db:"message_retention_period"`
	DelaySeconds                int     `db:"delay_seconds"`
	ReceiveMessageWaitTimeSecs  int     `db:"receive_message_wait_time_seconds"`
	Policy                      *string `db:"policy"`
	Tags                        *string `db:"tags"`
}

// Message mirrors one `sqs_messages` row.
type Message struct {
	ID                 string  `db:"id"`
	QueueName          string  `db:"queue_name"`
	Body               string  `db:"body"`
	MessageAttributes  *string `db:"message_attributes"`
	MD5Body            *string `db:"md5_body"`
	SentAt             string  `db:"sent_at"`
	VisibleAt          string  `db:"visible_at"`
	ReceiptHandle       *string `db:"receipt_handle"`
	ReceiveCount        int     `db:"receive_count"`
}

// CreateQueue registers a new queue with spec.md §3's defaults
// (cmn.DefaultVisibilityTimeout etc.), overridable by attrs.
func (e *Engine) CreateQueue(ctx context.Context, name, endpoint string, visibilityTimeout, retentionSecs, delaySecs, waitSecs int) (*Queue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if visibilityTimeout <= 0 {
		visibilityTimeout = cmn.DefaultVisibilityTimeout
	}
	if retentionSecs <= 0 {
		retentionSecs = cmn.DefaultMessageRetentionSecs
	}
	arn := cmn.BuildARNResource(cmn.SvcSQS, e.region, name)
	url := cmn.QueueURL(endpoint, name)
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sqs_queues (name, url, arn, created_at, visibility_timeout, message_retention_period,
			delay_seconds, receive_message_wait_time_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, url, arn, cmn.NowRFC3339(), visibilityTimeout, retentionSecs, delaySecs, waitSecs)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("queue", name)
		}
		return nil, dbErr(err)
	}
	return e.getQueueLocked(ctx, name)
}

func (e *Engine) getQueueLocked(ctx context.Context, name string) (*Queue, error) {
	var q Queue
	if err := e.db.GetContext(ctx, &q, `SELECT * FROM sqs_queues WHERE name = ?`, name); err != nil {
		return nil, cmn.ErrNotFound("queue", name)
	}
	return &q, nil
}

func (e *Engine) GetQueue(ctx context.Context, name string) (*Queue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getQueueLocked(ctx, name)
}

func (e *Engine) DeleteQueue(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getQueueLocked(ctx, name); err != nil {
		return err
	}
	_, err := e.db.ExecContext(ctx, `DELETE FROM sqs_queues WHERE name = ?`, name)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListQueues(ctx context.Context) ([]Queue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Queue
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM sqs_queues ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// SendMessage enqueues body, delayed by the queue's delay_seconds (or an
// explicit per-message override when delaySecsOverride >= 0).
func (e *Engine) SendMessage(ctx context.Context, queueName, body, messageAttrs string, delaySecsOverride int) (*Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.getQueueLocked(ctx, queueName)
	if err != nil {
		return nil, err
	}
	delay := q.DelaySeconds
	if delaySecsOverride >= 0 {
		delay = delaySecsOverride
	}
	now := cmn.NowRFC3339()
	visibleAt := now
	if delay > 0 {
		visibleAt = nowPlus(delay)
	}
	id := cmn.GenUUID()
	hash := md5Hex(body)
	_, err = e.db.ExecContext(ctx,
		`INSERT INTO sqs_messages (id, queue_name, body, message_attributes, md5_body, sent_at, visible_at, receive_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		id, queueName, body, nullableStr(messageAttrs), hash, now, visibleAt)
	if err != nil {
		return nil, dbErr(err)
	}
	return &Message{ID: id, QueueName: queueName, Body: body, MD5Body: &hash, SentAt: now, VisibleAt: visibleAt}, nil
}

// ReceiveMessages returns up to maxMessages currently-visible messages,
// marking each invisible until now+visibility_timeout and minting a fresh
// receipt handle (spec.md §3 "a message is visible to receivers when
// visible_at ≤ now").
func (e *Engine) ReceiveMessages(ctx context.Context, queueName string, maxMessages int) ([]Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, err := e.getQueueLocked(ctx, queueName)
	if err != nil {
		return nil, err
	}
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}
	now := cmn.NowRFC3339()
	var msgs []Message
	err = e.db.SelectContext(ctx, &msgs,
		`SELECT * FROM sqs_messages WHERE queue_name = ? AND visible_at <= ? ORDER BY sent_at LIMIT ?`,
		queueName, now, maxMessages)
	if err != nil {
		return nil, dbErr(err)
	}
	newVisible := nowPlus(q.VisibilityTimeout)
	for i := range msgs {
		handle := cmn.GenUUID()
		msgs[i].ReceiptHandle = &handle
		msgs[i].ReceiveCount++
		msgs[i].VisibleAt = newVisible
		if _, err := e.db.ExecContext(ctx,
			`UPDATE sqs_messages SET receipt_handle = ?, receive_count = ?, visible_at = ? WHERE id = ?`,
			handle, msgs[i].ReceiveCount, newVisible, msgs[i].ID); err != nil {
			return nil, dbErr(err)
		}
	}
	return msgs, nil
}

// DeleteMessage removes a message by receipt handle, failing
// cmn.KindNotFound if the handle is stale (already deleted, or superseded
// by a later receive) — this doubles as the "receipt handle no longer
// valid" case real SQS reports with ReceiptHandleIsInvalid.
func (e *Engine) DeleteMessage(ctx context.Context, queueName, receiptHandle string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := e.db.ExecContext(ctx,
		`DELETE FROM sqs_messages WHERE queue_name = ? AND receipt_handle = ?`, queueName, receiptHandle)
	if err != nil {
		return dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.ErrNotFound("message", receiptHandle)
	}
	return nil
}

// ChangeMessageVisibility extends or shortens a received message's
// invisibility window.
func (e *Engine) ChangeMessageVisibility(ctx context.Context, queueName, receiptHandle string, timeoutSecs int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	newVisible := nowPlus(timeoutSecs)
	res, err := e.db.ExecContext(ctx,
		`UPDATE sqs_messages SET visible_at = ? WHERE queue_name = ? AND receipt_handle = ?`,
		newVisible, queueName, receiptHandle)
	if err != nil {
		return dbErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cmn.ErrNotFound("message", receiptHandle)
	}
	return nil
}

func nowPlus(secs int) string {
	return time.Now().UTC().Add(time.Duration(secs) * time.Second).Format(time.RFC3339)
}

// md5Hex is SQS's MD5OfMessageBody convenience field — a content
// fingerprint real clients use to sanity-check delivery, not a security
// primitive.
func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
