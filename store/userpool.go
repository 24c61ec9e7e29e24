package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// UserPool mirrors one `cognito_user_pools` row.
type UserPool struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	ARN       string `db:"arn"`
	CreatedAt string `db:"created_at"`
}

// Group mirrors one `cognito_groups` row.
type Group struct {
	UserPoolID  string `db:"user_pool_id"`
	GroupName   string `db:"group_name"`
	Description *string `db:"description"`
	Precedence  *int    `db:"precedence"`
	CreatedAt   string  `db:"created_at"`
}

// User mirrors one `cognito_users` row.
type User struct {
	UserPoolID string `db:"user_pool_id"`
	Username   string `db:"username"`
	Email      *string `db:"email"`
	Status     string  `db:"status"`
	Enabled    bool    `db:"enabled"`
	CreatedAt  string  `db:"created_at"`
}

func (e *Engine) CreateUserPool(ctx context.Context, name string) (*UserPool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := "us-east-1_" + cmn.GenShortID()
	arn := cmn.BuildARNResource("cognito-idp", e.region, "userpool/"+id)
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cognito_user_pools (id, name, arn, created_at) VALUES (?, ?, ?, ?)`, id, name, arn, now)
	if err != nil {
		return nil, dbErr(err)
	}
	return &UserPool{ID: id, Name: name, ARN: arn, CreatedAt: now}, nil
}

func (e *Engine) getUserPoolLocked(ctx context.Context, id string) (*UserPool, error) {
	var up UserPool
	if err := e.db.GetContext(ctx, &up, `SELECT * FROM cognito_user_pools WHERE id = ?`, id); err != nil {
		return nil, cmn.ErrNotFound("user_pool", id)
	}
	return &up, nil
}

func (e *Engine) GetUserPool(ctx context.Context, id string) (*UserPool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getUserPoolLocked(ctx, id)
}

func (e *Engine) DeleteUserPool(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx, `DELETE FROM cognito_user_pools WHERE id = ?`, id)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// CreateGroup adds a group to a pool.
func (e *Engine) CreateGroup(ctx context.Context, poolID, groupName, description string, precedence int) (*Group, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getUserPoolLocked(ctx, poolID); err != nil {
		return nil, err
	}
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cognito_groups (user_pool_id, group_name, description, precedence, created_at) VALUES (?, ?, ?, ?, ?)`,
		poolID, groupName, nullableStr(description), precedence, now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("group", groupName)
		}
		return nil, dbErr(err)
	}
	return &Group{UserPoolID: poolID, GroupName: groupName, Precedence: &precedence, CreatedAt: now}, nil
}

// CreateUser adds a user to a pool with CONFIRMED/enabled defaults.
func (e *Engine) CreateUser(ctx context.Context, poolID, username, email string) (*User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getUserPoolLocked(ctx, poolID); err != nil {
		return nil, err
	}
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cognito_users (user_pool_id, username, email, status, enabled, created_at)
		 VALUES (?, ?, ?, 'CONFIRMED', 1, ?)`,
		poolID, username, nullableStr(email), now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("user", username)
		}
		return nil, dbErr(err)
	}
	return &User{UserPoolID: poolID, Username: username, Status: "CONFIRMED", Enabled: true, CreatedAt: now}, nil
}

func (e *Engine) getUserLocked(ctx context.Context, poolID, username string) (*User, error) {
	var u User
	err := e.db.GetContext(ctx, &u,
		`SELECT * FROM cognito_users WHERE user_pool_id = ? AND username = ?`, poolID, username)
	if err != nil {
		return nil, cmn.ErrNotFound("user", username)
	}
	return &u, nil
}

func (e *Engine) GetUser(ctx context.Context, poolID, username string) (*User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getUserLocked(ctx, poolID, username)
}

func (e *Engine) ListUsers(ctx context.Context, poolID string) ([]User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []User
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM cognito_users WHERE user_pool_id = ? ORDER BY username`, poolID)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// SetUserAttribute upserts one custom/standard attribute for a user.
func (e *Engine) SetUserAttribute(ctx context.Context, poolID, username, name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cognito_user_attributes (user_pool_id, username, name, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_pool_id, username, name) DO UPDATE SET value = excluded.value`,
		poolID, username, name, value)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// AddUserToGroup links a user to a group (both must already exist).
func (e *Engine) AddUserToGroup(ctx context.Context, poolID, username, groupName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO cognito_user_groups (user_pool_id, username, group_name) VALUES (?, ?, ?)`,
		poolID, username, groupName)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// ListGroupsForUser returns every group a user belongs to.
func (e *Engine) ListGroupsForUser(ctx context.Context, poolID, username string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var groups []string
	err := e.db.SelectContext(ctx, &groups,
		`SELECT group_name FROM cognito_user_groups WHERE user_pool_id = ? AND username = ?`, poolID, username)
	if err != nil {
		return nil, dbErr(err)
	}
	return groups, nil
}
