package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// SNSTopic mirrors one `sns_topics` row (SPEC_FULL.md §3 SNS supplement).
type SNSTopic struct {
	Name        string  `db:"name"`
	ARN         string  `db:"arn"`
	DisplayName *string `db:"display_name"`
	Tags        *string `db:"tags"`
	CreatedAt   string  `db:"created_at"`
}

// SNSSubscription mirrors one `sns_subscriptions` row.
type SNSSubscription struct {
	ARN      string `db:"arn"`
	TopicARN string `db:"topic_arn"`
	Protocol string `db:"protocol"`
	Endpoint string `db:"endpoint"`
	CreatedAt string `db:"created_at"`
}

func (e *Engine) CreateTopic(ctx context.Context, name, displayName string) (*SNSTopic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARNResource(cmn.SvcSNS, e.region, name)
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sns_topics (name, arn, display_name, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, arn, nullableStr(displayName), now)
	if err != nil {
		return nil, dbErr(err)
	}
	return e.getTopicLocked(ctx, arn)
}

func (e *Engine) getTopicLocked(ctx context.Context, arn string) (*SNSTopic, error) {
	var t SNSTopic
	if err := e.db.GetContext(ctx, &t, `SELECT * FROM sns_topics WHERE arn = ?`, arn); err != nil {
		return nil, cmn.ErrNotFound("topic", arn)
	}
	return &t, nil
}

func (e *Engine) GetTopic(ctx context.Context, arn string) (*SNSTopic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getTopicLocked(ctx, arn)
}

func (e *Engine) DeleteTopic(ctx context.Context, arn string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM sns_topics WHERE arn = ?`, arn)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListTopics(ctx context.Context) ([]SNSTopic, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []SNSTopic
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM sns_topics ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// Subscribe registers a subscription under topicARN. protocol/endpoint
// follow SNS's own vocabulary ("sqs"/queue-arn, "http(s)"/url, etc); the
// emulator only ever actually delivers to sqs-protocol subscriptions via
// the event matcher's dispatch path (spec.md §4.4), logging the rest.
func (e *Engine) Subscribe(ctx context.Context, topicARN, protocol, endpoint string) (*SNSSubscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getTopicLocked(ctx, topicARN); err != nil {
		return nil, err
	}
	arn := topicARN + ":" + cmn.GenUUID()
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sns_subscriptions (arn, topic_arn, protocol, endpoint, created_at) VALUES (?, ?, ?, ?, ?)`,
		arn, topicARN, protocol, endpoint, now)
	if err != nil {
		return nil, dbErr(err)
	}
	return &SNSSubscription{ARN: arn, TopicARN: topicARN, Protocol: protocol, Endpoint: endpoint, CreatedAt: now}, nil
}

func (e *Engine) Unsubscribe(ctx context.Context, subscriptionARN string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM sns_subscriptions WHERE arn = ?`, subscriptionARN)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListSubscriptionsByTopic(ctx context.Context, topicARN string) ([]SNSSubscription, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []SNSSubscription
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM sns_subscriptions WHERE topic_arn = ?`, topicARN)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
