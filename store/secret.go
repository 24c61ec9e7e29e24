package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Secret mirrors one `secrets` row.
type Secret struct {
	ARN              string  `db:"arn"`
	Name             string  `db:"name"`
	Description      *string `db:"description"`
	KMSKeyID         *string `db:"kms_key_id"`
	CreatedAt        string  `db:"created_at"`
	LastChangedDate  *string `db:"last_changed_date"`
	LastAccessedDate *string `db:"last_accessed_date"`
	Tags             *string `db:"tags"`
	DeletedDate      *string `db:"deleted_date"`
}

// SecretVersion mirrors one `secret_versions` row. VersionStages is a
// JSON-encoded list; exactly one version per secret carries "AWSCURRENT"
// (spec.md §3 "Secrets").
type SecretVersion struct {
	SecretARN     string  `db:"secret_arn"`
	VersionID     string  `db:"version_id"`
	VersionStages string  `db:"version_stages"`
	SecretString  *string `db:"secret_string"`
	SecretBinary  []byte  `db:"secret_binary"`
	CreatedDate   string  `db:"created_date"`
}

// CreateSecret registers a secret and its first version, stamped
// AWSCURRENT, mirroring real Secrets Manager's CreateSecret which always
// creates version 1 in the same call.
func (e *Engine) CreateSecret(ctx context.Context, name, description, secretString string) (*Secret, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARNResource("secretsmanager", e.region, "secret:"+name+"-"+cmn.GenShortID())
	now := cmn.NowRFC3339()
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbErr(err)
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO secrets (arn, name, description, created_at, last_changed_date) VALUES (?, ?, ?, ?, ?)`,
		arn, name, nullableStr(description), now, now)
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("secret", name)
		}
		return nil, dbErr(err)
	}
	versionID := cmn.GenUUID()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO secret_versions (secret_arn, version_id, version_stages, secret_string, created_date)
		 VALUES (?, ?, '["AWSCURRENT"]', ?, ?)`,
		arn, versionID, secretString, now)
	if err != nil {
		return nil, dbErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbErr(err)
	}
	return &Secret{ARN: arn, Name: name, CreatedAt: now, LastChangedDate: &now}, nil
}

func (e *Engine) getSecretLocked(ctx context.Context, nameOrARN string) (*Secret, error) {
	var s Secret
	err := e.db.GetContext(ctx, &s,
		`SELECT * FROM secrets WHERE (arn = ? OR name = ?) AND deleted_date IS NULL`, nameOrARN, nameOrARN)
	if err != nil {
		return nil, cmn.ErrNotFound("secret", nameOrARN)
	}
	return &s, nil
}

func (e *Engine) GetSecret(ctx context.Context, nameOrARN string) (*Secret, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getSecretLocked(ctx, nameOrARN)
}

// GetSecretValue returns the AWSCURRENT version's payload, or a specific
// versionID/stage if requested.
func (e *Engine) GetSecretValue(ctx context.Context, nameOrARN, versionID, versionStage string) (*SecretVersion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.getSecretLocked(ctx, nameOrARN)
	if err != nil {
		return nil, err
	}
	var v SecretVersion
	switch {
	case versionID != "":
		err = e.db.GetContext(ctx, &v,
			`SELECT * FROM secret_versions WHERE secret_arn = ? AND version_id = ?`, s.ARN, versionID)
	case versionStage != "":
		err = e.db.GetContext(ctx, &v,
			`SELECT * FROM secret_versions WHERE secret_arn = ? AND version_stages LIKE ?`,
			s.ARN, "%"+versionStage+"%")
	default:
		err = e.db.GetContext(ctx, &v,
			`SELECT * FROM secret_versions WHERE secret_arn = ? AND version_stages LIKE '%AWSCURRENT%'`, s.ARN)
	}
	if err != nil {
		return nil, cmn.ErrNotFound("secret_version", nameOrARN)
	}
	_, _ = e.db.ExecContext(ctx, `UPDATE secrets SET last_accessed_date = ? WHERE arn = ?`, cmn.NowRFC3339(), s.ARN)
	return &v, nil
}

// PutSecretValue creates a new version and moves AWSCURRENT onto it,
// matching real Secrets Manager's rotation model.
func (e *Engine) PutSecretValue(ctx context.Context, nameOrARN, secretString string) (*SecretVersion, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.getSecretLocked(ctx, nameOrARN)
	if err != nil {
		return nil, err
	}
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, dbErr(err)
	}
	defer tx.Rollback()
	_, err = tx.ExecContext(ctx,
		`UPDATE secret_versions SET version_stages = '[]' WHERE secret_arn = ? AND version_stages LIKE '%AWSCURRENT%'`, s.ARN)
	if err != nil {
		return nil, dbErr(err)
	}
	versionID := cmn.GenUUID()
	now := cmn.NowRFC3339()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO secret_versions (secret_arn, version_id, version_stages, secret_string, created_date)
		 VALUES (?, ?, '["AWSCURRENT"]', ?, ?)`, s.ARN, versionID, secretString, now)
	if err != nil {
		return nil, dbErr(err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE secrets SET last_changed_date = ? WHERE arn = ?`, now, s.ARN); err != nil {
		return nil, dbErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, dbErr(err)
	}
	return &SecretVersion{SecretARN: s.ARN, VersionID: versionID, VersionStages: `["AWSCURRENT"]`,
		SecretString: &secretString, CreatedDate: now}, nil
}

// DeleteSecret soft-deletes by stamping deleted_date, matching real
// Secrets Manager's recovery-window behavior (the emulator doesn't honor
// the window for actual purge, but GetSecretValue/ListSecrets must stop
// surfacing the row once deleted).
func (e *Engine) DeleteSecret(ctx context.Context, nameOrARN string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.getSecretLocked(ctx, nameOrARN)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx, `UPDATE secrets SET deleted_date = ? WHERE arn = ?`, cmn.NowRFC3339(), s.ARN)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListSecrets(ctx context.Context) ([]Secret, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Secret
	err := e.db.SelectContext(ctx, &out, `SELECT * FROM secrets WHERE deleted_date IS NULL ORDER BY name`)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
