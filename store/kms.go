package store

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
)

const (
	KeyStateEnabled         = "Enabled"
	KeyStateDisabled        = "Disabled"
	KeyStatePendingDeletion = "PendingDeletion"
)

// Key mirrors one `kms_keys` row. Cryptographic fidelity is explicitly a
// non-goal (spec.md §1): Encrypt/Decrypt operate on a mock ciphertext mark
// rather than real envelope encryption, so this row only tracks lifecycle
// state and descriptive metadata.
type Key struct {
	ID           string  `db:"id"`
	ARN          string  `db:"arn"`
	Description  *string `db:"description"`
	KeyUsage     string  `db:"key_usage"`
	KeySpec      string  `db:"key_spec"`
	KeyState     string  `db:"key_state"`
	CreatedAt    string  `db:"created_at"`
	DeletionDate *string `db:"deletion_date"`
	Tags         *string `db:"tags"`
}

// CreateKey mints a new key, Enabled by default.
func (e *Engine) CreateKey(ctx context.Context, description, keyUsage, keySpec string) (*Key, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := cmn.GenUUID()
	arn := cmn.BuildARN("kms", e.region, "key", id)
	if keyUsage == "" {
		keyUsage = "ENCRYPT_DECRYPT"
	}
	if keySpec == "" {
		keySpec = "SYMMETRIC_DEFAULT"
	}
	now := cmn.NowRFC3339()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO kms_keys (id, arn, description, key_usage, key_spec, key_state, created_at)
		 VALUES (?, ?, ?, ?, ?, 'Enabled', ?)`,
		id, arn, nullableStr(description), keyUsage, keySpec, now)
	if err != nil {
		return nil, dbErr(err)
	}
	return &Key{ID: id, ARN: arn, KeyUsage: keyUsage, KeySpec: keySpec, KeyState: KeyStateEnabled, CreatedAt: now}, nil
}

func (e *Engine) getKeyLocked(ctx context.Context, idOrARN string) (*Key, error) {
	var k Key
	if err := e.db.GetContext(ctx, &k, `SELECT * FROM kms_keys WHERE id = ? OR arn = ?`, idOrARN, idOrARN); err != nil {
		return nil, cmn.ErrNotFound("key", idOrARN)
	}
	return &k, nil
}

func (e *Engine) GetKey(ctx context.Context, idOrARN string) (*Key, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getKeyLocked(ctx, idOrARN)
}

func (e *Engine) ListKeys(ctx context.Context) ([]Key, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Key
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM kms_keys ORDER BY created_at`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// SetKeyState transitions a key between Enabled/Disabled, or schedules
// deletion (PendingDeletion with a deletion_date).
func (e *Engine) SetKeyState(ctx context.Context, idOrARN, state string, deletionDate string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	k, err := e.getKeyLocked(ctx, idOrARN)
	if err != nil {
		return err
	}
	if state != KeyStateEnabled && state != KeyStateDisabled && state != KeyStatePendingDeletion {
		return cmn.ErrInvalidArgument("invalid key state: " + state)
	}
	_, err = e.db.ExecContext(ctx,
		`UPDATE kms_keys SET key_state = ?, deletion_date = ? WHERE id = ?`, state, nullableStr(deletionDate), k.ID)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// mockCiphertextPrefix marks the reversible stand-in cipher used by
// Encrypt/Decrypt: `enc:<keyID>:<base64(plaintext)>`. Real envelope
// encryption is explicitly out of scope (spec.md §1 non-goals).
const mockCiphertextPrefix = "enc:"

// Encrypt produces a mock ciphertext blob bound to keyID. It fails
// cmn.KindInvalidRequest if the key is not Enabled, matching real KMS
// behavior for Disabled/PendingDeletion keys.
func (e *Engine) Encrypt(ctx context.Context, keyIDOrARN string, plaintext []byte) (string, error) {
	e.mu.Lock()
	k, err := e.getKeyLocked(ctx, keyIDOrARN)
	e.mu.Unlock()
	if err != nil {
		return "", err
	}
	if k.KeyState != KeyStateEnabled {
		return "", cmn.ErrInvalidRequest("key " + k.ID + " is not enabled")
	}
	return mockCiphertextPrefix + k.ID + ":" + base64.StdEncoding.EncodeToString(plaintext), nil
}

// Decrypt reverses Encrypt's mark, returning the key id it was bound to
// plus the recovered plaintext.
func (e *Engine) Decrypt(ctx context.Context, ciphertext string) (keyID string, plaintext []byte, err error) {
	if !strings.HasPrefix(ciphertext, mockCiphertextPrefix) {
		return "", nil, cmn.ErrInvalidRequest("malformed ciphertext blob")
	}
	rest := strings.TrimPrefix(ciphertext, mockCiphertextPrefix)
	parts := strings.SplitN(rest, ":", 2)
	if len(parts) != 2 {
		return "", nil, cmn.ErrInvalidRequest("malformed ciphertext blob")
	}
	e.mu.Lock()
	k, err := e.getKeyLocked(ctx, parts[0])
	e.mu.Unlock()
	if err != nil {
		return "", nil, err
	}
	if k.KeyState != KeyStateEnabled {
		return "", nil, cmn.ErrInvalidRequest("key " + k.ID + " is not enabled")
	}
	pt, decErr := base64.StdEncoding.DecodeString(parts[1])
	if decErr != nil {
		return "", nil, cmn.ErrInvalidRequest("malformed ciphertext blob")
	}
	return k.ID, pt, nil
}
