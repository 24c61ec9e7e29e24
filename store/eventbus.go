package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

const (
	RuleStateEnabled  = "ENABLED"
	RuleStateDisabled = "DISABLED"
)

// EventBus mirrors one `event_buses` row.
type EventBus struct {
	Name   string  `db:"name"`
	ARN    string  `db:"arn"`
	Policy *string `db:"policy"`
}

// EventRule mirrors one `event_rules` row, keyed (event_bus_name, name)
// per spec.md §3.
type EventRule struct {
	Name               string  `db:"name"`
	EventBusName       string  `db:"event_bus_name"`
	ARN                string  `db:"arn"`
	EventPattern       *string `db:"event_pattern"`
	State              string  `db:"state"`
	Description        *string `db:"description"`
	ScheduleExpression *string `db:"schedule_expression"`
	CreatedAt          string  `db:"created_at"`
}

// EventTarget mirrors one `event_targets` row.
type EventTarget struct {
	ID           string  `db:"id"`
	RuleName     string  `db:"rule_name"`
	EventBusName string  `db:"event_bus_name"`
	ARN          string  `db:"arn"`
	Input        *string `db:"input"`
	InputPath    *string `db:"input_path"`
}

// EventHistoryEntry mirrors one `event_history` row, written by
// RecordEvent regardless of whether any rule matched (append-only audit
// trail, spec.md §3 "History entries are append-only").
type EventHistoryEntry struct {
	ID           string  `db:"id"`
	EventBusName string  `db:"event_bus_name"`
	Source       *string `db:"source"`
	DetailType   *string `db:"detail_type"`
	Detail       *string `db:"detail"`
	Time         *string `db:"time"`
	Resources    *string `db:"resources"`
	MatchedRules *string `db:"matched_rules"`
}

func (e *Engine) CreateEventBus(ctx context.Context, name string) (*EventBus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARNResource("events", e.region, "event-bus/"+name)
	_, err := e.db.ExecContext(ctx, `INSERT INTO event_buses (name, arn) VALUES (?, ?)`, name, arn)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("event_bus", name)
		}
		return nil, dbErr(err)
	}
	return &EventBus{Name: name, ARN: arn}, nil
}

func (e *Engine) getEventBusLocked(ctx context.Context, name string) (*EventBus, error) {
	var b EventBus
	if err := e.db.GetContext(ctx, &b, `SELECT * FROM event_buses WHERE name = ?`, name); err != nil {
		return nil, cmn.ErrNotFound("event_bus", name)
	}
	return &b, nil
}

func (e *Engine) GetEventBus(ctx context.Context, name string) (*EventBus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getEventBusLocked(ctx, name)
}

func (e *Engine) ListEventBuses(ctx context.Context) ([]EventBus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []EventBus
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM event_buses ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// PutRule creates or replaces a rule on a bus.
func (e *Engine) PutRule(ctx context.Context, busName, ruleName, eventPattern, scheduleExpr, description string) (*EventRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getEventBusLocked(ctx, busName); err != nil {
		return nil, err
	}
	arn := cmn.BuildARNResource("events", e.region, "rule/"+busName+"/"+ruleName)
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO event_rules (name, event_bus_name, arn, event_pattern, state, description, schedule_expression, created_at)
		 VALUES (?, ?, ?, ?, 'ENABLED', ?, ?, ?)
		 ON CONFLICT(event_bus_name, name) DO UPDATE SET event_pattern=excluded.event_pattern,
			description=excluded.description, schedule_expression=excluded.schedule_expression`,
		ruleName, busName, arn, nullableStr(eventPattern), nullableStr(description), nullableStr(scheduleExpr), now)
	if err != nil {
		return nil, dbErr(err)
	}
	return e.getRuleLocked(ctx, busName, ruleName)
}

func (e *Engine) getRuleLocked(ctx context.Context, busName, ruleName string) (*EventRule, error) {
	var r EventRule
	err := e.db.GetContext(ctx, &r,
		`SELECT * FROM event_rules WHERE event_bus_name = ? AND name = ?`, busName, ruleName)
	if err != nil {
		return nil, cmn.ErrNotFound("event_rule", ruleName)
	}
	return &r, nil
}

func (e *Engine) GetRule(ctx context.Context, busName, ruleName string) (*EventRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getRuleLocked(ctx, busName, ruleName)
}

func (e *Engine) DeleteRule(ctx context.Context, busName, ruleName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM event_rules WHERE event_bus_name = ? AND name = ?`, busName, ruleName)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) SetRuleState(ctx context.Context, busName, ruleName, state string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if state != RuleStateEnabled && state != RuleStateDisabled {
		return cmn.ErrInvalidArgument("invalid rule state: " + state)
	}
	_, err := e.db.ExecContext(ctx,
		`UPDATE event_rules SET state = ? WHERE event_bus_name = ? AND name = ?`, state, busName, ruleName)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// ListRules returns every rule on a bus, for the event matcher to scan on
// each RecordEvent call (spec.md §4.4).
func (e *Engine) ListRules(ctx context.Context, busName string) ([]EventRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []EventRule
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM event_rules WHERE event_bus_name = ? AND state = 'ENABLED' ORDER BY name`, busName)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// PutTargets registers one target under a rule.
func (e *Engine) PutTargets(ctx context.Context, busName, ruleName, targetID, targetARN, input, inputPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO event_targets (id, rule_name, event_bus_name, arn, input, input_path) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(event_bus_name, rule_name, id) DO UPDATE SET arn=excluded.arn, input=excluded.input,
			input_path=excluded.input_path`,
		targetID, ruleName, busName, targetARN, nullableStr(input), nullableStr(inputPath))
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) RemoveTarget(ctx context.Context, busName, ruleName, targetID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`DELETE FROM event_targets WHERE event_bus_name = ? AND rule_name = ? AND id = ?`, busName, ruleName, targetID)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// ListTargets returns every target registered on a rule.
func (e *Engine) ListTargets(ctx context.Context, busName, ruleName string) ([]EventTarget, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []EventTarget
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM event_targets WHERE event_bus_name = ? AND rule_name = ?`, busName, ruleName)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// RecordEventHistory appends one history row — called unconditionally by
// RecordEvent regardless of match outcome.
func (e *Engine) RecordEventHistory(ctx context.Context, entry EventHistoryEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO event_history (id, event_bus_name, source, detail_type, detail, time, resources, matched_rules)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.EventBusName, entry.Source, entry.DetailType, entry.Detail, entry.Time,
		entry.Resources, entry.MatchedRules)
	if err != nil {
		return dbErr(err)
	}
	return nil
}
