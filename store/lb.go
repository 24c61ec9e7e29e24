package store

import (
	"context"
	"fmt"

	"github.com/NVIDIA/cloudemu/cmn"
)

// LoadBalancer mirrors one `load_balancers` row (zero provider only;
// spec.md §4.5).
type LoadBalancer struct {
	Name    string `db:"name"`
	Type    string `db:"type"`
	DNSName string `db:"dns_name"`
	Status  string `db:"status"`
}

// TargetGroup mirrors one `target_groups` row.
type TargetGroup struct {
	ARN             string `db:"arn"`
	Name            string `db:"name"`
	Port            int    `db:"port"`
	Protocol        string `db:"protocol"`
	HealthCheckPath string `db:"health_check_path"`
}

// Target mirrors one `targets` row. Weight drives the data plane's
// weighted-random selection (spec.md §4.5 "pick one (weighted random
// acceptable)").
type Target struct {
	GroupARN string `db:"group_arn"`
	TargetID string `db:"target_id"`
	Host     string `db:"host"`
	Port     int    `db:"port"`
	Weight   int    `db:"weight"`
	Status   string `db:"status"`
}

// Listener mirrors one `listeners` row. Port is globally unique: only one
// proxy can bind it at a time.
type Listener struct {
	ID             string `db:"id"`
	LBName         string `db:"lb_name"`
	Port           int    `db:"port"`
	Protocol       string `db:"protocol"`
	TargetGroupARN string `db:"target_group_arn"`
}

// CreateLoadBalancer registers a named load balancer, idempotently
// replacing any existing row of the same name (matches the original
// `INSERT OR REPLACE` behavior).
func (e *Engine) CreateLoadBalancer(ctx context.Context, name, lbType string) (*LoadBalancer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	dns := fmt.Sprintf("%s.lb.zero.local", name)
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO load_balancers (name, type, dns_name, status) VALUES (?, ?, ?, 'active')
		 ON CONFLICT(name) DO UPDATE SET type=excluded.type, dns_name=excluded.dns_name`,
		name, lbType, dns)
	if err != nil {
		return nil, dbErr(err)
	}
	return &LoadBalancer{Name: name, Type: lbType, DNSName: dns, Status: "active"}, nil
}

func (e *Engine) GetLoadBalancer(ctx context.Context, name string) (*LoadBalancer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var lb LoadBalancer
	if err := e.db.GetContext(ctx, &lb, `SELECT * FROM load_balancers WHERE name = ?`, name); err != nil {
		return nil, cmn.ErrNotFound("load_balancer", name)
	}
	return &lb, nil
}

// CreateTargetGroup registers a target group under a freshly synthesized
// ARN, matching the original format `arn:zero:elasticloadbalancing:000000:targetgroup/<name>/<uuid>`.
func (e *Engine) CreateTargetGroup(ctx context.Context, name string, port int, protocol string) (*TargetGroup, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := fmt.Sprintf("arn:zero:elasticloadbalancing:000000:targetgroup/%s/%s", name, cmn.GenUUID())
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO target_groups (arn, name, port, protocol, health_check_path) VALUES (?, ?, ?, ?, '/health')`,
		arn, name, port, protocol)
	if err != nil {
		return nil, dbErr(err)
	}
	return &TargetGroup{ARN: arn, Name: name, Port: port, Protocol: protocol, HealthCheckPath: "/health"}, nil
}

// RegisterTarget adds or re-registers a healthy target in a group.
func (e *Engine) RegisterTarget(ctx context.Context, groupARN, targetID, host string, port, weight int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if weight <= 0 {
		weight = 1
	}
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO targets (group_arn, target_id, host, port, weight, status) VALUES (?, ?, ?, ?, ?, 'healthy')
		 ON CONFLICT(group_arn, target_id) DO UPDATE SET host=excluded.host, port=excluded.port,
			weight=excluded.weight, status='healthy'`,
		groupARN, targetID, host, port, weight)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// DeregisterTarget removes a target from its group.
func (e *Engine) DeregisterTarget(ctx context.Context, groupARN, targetID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM targets WHERE group_arn = ? AND target_id = ?`, groupARN, targetID)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// HealthyTargets returns every healthy target in a group, for the data
// plane's per-request selection.
func (e *Engine) HealthyTargets(ctx context.Context, groupARN string) ([]Target, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var targets []Target
	err := e.db.SelectContext(ctx, &targets,
		`SELECT * FROM targets WHERE group_arn = ? AND status = 'healthy'`, groupARN)
	if err != nil {
		return nil, dbErr(err)
	}
	return targets, nil
}

// CreateListener persists a listener row. The caller (lb.DataPlane) is
// responsible for actually binding the port after this returns — spec.md
// §4.5's "listener tasks are tracked by port" lives at that layer, not
// here, so the storage engine stays free of network state.
func (e *Engine) CreateListener(ctx context.Context, lbName string, port int, protocol, targetGroupARN string) (*Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := fmt.Sprintf("arn:zero:elasticloadbalancing:000000:listener/%s/%s", lbName, cmn.GenUUID())
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO listeners (id, lb_name, port, protocol, target_group_arn) VALUES (?, ?, ?, ?, ?)`,
		id, lbName, port, protocol, targetGroupARN)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrInvalidArgument(fmt.Sprintf("port %d already has a listener", port))
		}
		return nil, dbErr(err)
	}
	return &Listener{ID: id, LBName: lbName, Port: port, Protocol: protocol, TargetGroupARN: targetGroupARN}, nil
}

// DeleteListener removes a listener row; callers must also stop the bound
// proxy task.
func (e *Engine) DeleteListener(ctx context.Context, listenerID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM listeners WHERE id = ?`, listenerID)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// ListListeners returns every persisted listener, for sync_data_plane to
// restore bound ports on startup (spec.md §4.5).
func (e *Engine) ListListeners(ctx context.Context) ([]Listener, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Listener
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM listeners`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
