package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

const (
	ExecRunning   = "RUNNING"
	ExecSucceeded = "SUCCEEDED"
	ExecFailed    = "FAILED"
	ExecTimedOut  = "TIMED_OUT"
	ExecAborted   = "ABORTED"
)

// StateMachine mirrors one `sf_state_machines` row.
type StateMachine struct {
	ARN        string `db:"arn"`
	Name       string `db:"name"`
	Definition string `db:"definition"`
	RoleARN    string `db:"role_arn"`
	Type       string `db:"type"`
	CreatedAt  string `db:"created_at"`
}

// Execution mirrors one `sf_executions` row.
type Execution struct {
	ARN             string  `db:"arn"`
	StateMachineARN string  `db:"state_machine_arn"`
	Name            string  `db:"name"`
	Status          string  `db:"status"`
	Input           *string `db:"input"`
	Output          *string `db:"output"`
	Error           *string `db:"error"`
	Cause           *string `db:"cause"`
	StartDate       string  `db:"start_date"`
	StopDate        *string `db:"stop_date"`
}

func (e *Engine) CreateStateMachine(ctx context.Context, name, definition, roleARN, smType string) (*StateMachine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARNResource("states", e.region, "stateMachine:"+name)
	if smType == "" {
		smType = "STANDARD"
	}
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sf_state_machines (arn, name, definition, role_arn, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		arn, name, definition, roleARN, smType, now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("state_machine", name)
		}
		return nil, dbErr(err)
	}
	return &StateMachine{ARN: arn, Name: name, Definition: definition, RoleARN: roleARN, Type: smType, CreatedAt: now}, nil
}

func (e *Engine) getStateMachineLocked(ctx context.Context, arn string) (*StateMachine, error) {
	var sm StateMachine
	if err := e.db.GetContext(ctx, &sm, `SELECT * FROM sf_state_machines WHERE arn = ?`, arn); err != nil {
		return nil, cmn.ErrNotFound("state_machine", arn)
	}
	return &sm, nil
}

func (e *Engine) GetStateMachine(ctx context.Context, arn string) (*StateMachine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getStateMachineLocked(ctx, arn)
}

func (e *Engine) DeleteStateMachine(ctx context.Context, arn string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM sf_state_machines WHERE arn = ?`, arn)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListStateMachines(ctx context.Context) ([]StateMachine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []StateMachine
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM sf_state_machines ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// StartExecution creates a RUNNING execution row. The caller (the ASL
// package's interpreter, invoked synchronously per spec.md §4.3) is
// expected to call FinishExecution with the terminal result before this
// call's HTTP response is sent, since executions here never outlive a
// single request.
func (e *Engine) StartExecution(ctx context.Context, smARN, name, input string) (*Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getStateMachineLocked(ctx, smARN); err != nil {
		return nil, err
	}
	arn := smARN + ":" + name
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO sf_executions (arn, state_machine_arn, name, status, input, start_date)
		 VALUES (?, ?, ?, 'RUNNING', ?, ?)`,
		arn, smARN, name, nullableStr(input), now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("execution", name)
		}
		return nil, dbErr(err)
	}
	return &Execution{ARN: arn, StateMachineARN: smARN, Name: name, Status: ExecRunning, StartDate: now}, nil
}

// FinishExecution records the terminal status/output or error/cause and
// stop_date.
func (e *Engine) FinishExecution(ctx context.Context, execARN, status, output, errName, cause string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`UPDATE sf_executions SET status = ?, output = ?, error = ?, cause = ?, stop_date = ? WHERE arn = ?`,
		status, nullableStr(output), nullableStr(errName), nullableStr(cause), cmn.NowRFC3339(), execARN)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) GetExecution(ctx context.Context, arn string) (*Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ex Execution
	if err := e.db.GetContext(ctx, &ex, `SELECT * FROM sf_executions WHERE arn = ?`, arn); err != nil {
		return nil, cmn.ErrNotFound("execution", arn)
	}
	return &ex, nil
}

func (e *Engine) ListExecutions(ctx context.Context, smARN string) ([]Execution, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Execution
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM sf_executions WHERE state_machine_arn = ? ORDER BY start_date DESC`, smARN)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
