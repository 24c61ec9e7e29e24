package events

import (
	"context"
	"strings"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// Enqueuer is the subset of store.Engine dispatch needs, so tests can
// stub it out without standing up a real database.
type Enqueuer interface {
	SendMessage(ctx context.Context, queueName, body, messageAttrs string, delaySecsOverride int) (*store.Message, error)
}

// Dispatcher fans a matched event out to its targets, per spec.md §4.4.
type Dispatcher struct {
	queues Enqueuer
	cache  *PatternCache
}

func NewDispatcher(queues Enqueuer) *Dispatcher {
	return &Dispatcher{queues: queues, cache: NewPatternCache()}
}

// envelope is the JSON shape enqueued to SQS targets (spec.md §4.4).
type envelope struct {
	Version    string        `json:"version"`
	ID         string        `json:"id"`
	Source     string        `json:"source"`
	DetailType string        `json:"detail-type"`
	Time       string        `json:"time"`
	Region     string        `json:"region"`
	Resources  []string      `json:"resources"`
	Detail     cmn.Value     `json:"detail"`
}

// Dispatch delivers ev to every target listed for rule (rule.ARN already
// resolved by the caller to its targets). Per spec.md §4.4, dispatch
// failures are logged but never propagate — RecordEvent always succeeds
// once the event is persisted to history.
func (d *Dispatcher) Dispatch(ctx context.Context, region string, ev Event, targets []store.EventTarget) {
	for _, t := range targets {
		switch {
		case strings.Contains(t.ARN, ":sqs:"):
			d.dispatchSQS(ctx, t, ev, region)
		case strings.Contains(t.ARN, ":sns:"), strings.Contains(t.ARN, ":lambda:"):
			glog.Infof("events: stub delivery to %s (source=%s detail-type=%s)", t.ARN, ev.Source, ev.DetailType)
		default:
			glog.Warningf("events: unknown target type %s, dropping", t.ARN)
		}
	}
}

func (d *Dispatcher) dispatchSQS(ctx context.Context, t store.EventTarget, ev Event, region string) {
	queueName := queueNameFromARN(t.ARN)
	if queueName == "" {
		glog.Warningf("events: malformed sqs target arn %s", t.ARN)
		return
	}
	env := envelope{
		Version: "0", ID: cmn.GenUUID(), Source: ev.Source, DetailType: ev.DetailType,
		Time: ev.Time, Region: region, Resources: ev.Resources, Detail: ev.Detail,
	}
	body, err := cmn.JSON.MarshalToString(env)
	if err != nil {
		glog.Errorf("events: failed to encode envelope for %s: %v", t.ARN, err)
		return
	}
	if _, err := d.queues.SendMessage(ctx, queueName, body, "", 0); err != nil {
		glog.Errorf("events: failed to enqueue to %s: %v", queueName, err)
	}
}

func queueNameFromARN(arn string) string {
	idx := strings.LastIndex(arn, ":")
	if idx < 0 || idx == len(arn)-1 {
		return ""
	}
	return arn[idx+1:]
}
