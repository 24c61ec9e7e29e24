package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Table mirrors one `ddb_tables` row (spec.md §3 "KV tables").
type Table struct {
	Name                 string `db:"name"`
	ARN                  string `db:"arn"`
	Status               string `db:"status"`
	AttributeDefinitions string `db:"attribute_definitions"`
	KeySchema            string `db:"key_schema"`
	BillingMode          string `db:"billing_mode"`
	CreatedAt            string `db:"created_at"`
	ItemCount            int64  `db:"item_count"`
}

// Item mirrors one `ddb_items` row; ItemJSON is opaque to the engine.
type Item struct {
	TableName    string `db:"table_name"`
	PartitionKey string `db:"partition_key"`
	SortKey      string `db:"sort_key"`
	ItemJSON     string `db:"item_json"`
}

// CreateTable defines a new KV table (spec.md §3: attribute_definitions /
// key_schema are caller-supplied JSON the engine stores but never
// interprets, since key extraction happens in the protocol adapter that
// already parsed the typed request).
func (e *Engine) CreateTable(ctx context.Context, name, attributeDefs, keySchema, billingMode string) (*Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	arn := cmn.BuildARN("dynamodb", e.region, "table", name)
	if billingMode == "" {
		billingMode = "PAY_PER_REQUEST"
	}
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO ddb_tables (name, arn, attribute_definitions, key_schema, billing_mode, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		name, arn, attributeDefs, keySchema, billingMode, cmn.NowRFC3339())
	if err != nil {
		if derr := dbErr(err); derr.Kind == cmn.KindAlreadyExists {
			return nil, cmn.ErrAlreadyExists("table", name)
		}
		return nil, dbErr(err)
	}
	return e.getTableLocked(ctx, name)
}

func (e *Engine) getTableLocked(ctx context.Context, name string) (*Table, error) {
	var t Table
	if err := e.db.GetContext(ctx, &t, `SELECT * FROM ddb_tables WHERE name = ?`, name); err != nil {
		return nil, cmn.ErrNotFound("table", name)
	}
	return &t, nil
}

func (e *Engine) GetTable(ctx context.Context, name string) (*Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getTableLocked(ctx, name)
}

func (e *Engine) DeleteTable(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getTableLocked(ctx, name); err != nil {
		return err
	}
	_, err := e.db.ExecContext(ctx, `DELETE FROM ddb_tables WHERE name = ?`, name)
	if err != nil {
		return dbErr(err)
	}
	return nil
}

func (e *Engine) ListTables(ctx context.Context) ([]Table, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Table
	if err := e.db.SelectContext(ctx, &out, `SELECT * FROM ddb_tables ORDER BY name`); err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// PutItem upserts an item keyed by (table, partitionKey, sortKey). sortKey
// is "" for tables without a range key, matching the schema's NOT NULL
// DEFAULT ''.
func (e *Engine) PutItem(ctx context.Context, table, partitionKey, sortKey, itemJSON string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getTableLocked(ctx, table); err != nil {
		return err
	}
	var existed int
	_ = e.db.GetContext(ctx, &existed,
		`SELECT COUNT(*) FROM ddb_items WHERE table_name=? AND partition_key=? AND sort_key=?`,
		table, partitionKey, sortKey)
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO ddb_items (table_name, partition_key, sort_key, item_json) VALUES (?, ?, ?, ?)
		 ON CONFLICT(table_name, partition_key, sort_key) DO UPDATE SET item_json = excluded.item_json`,
		table, partitionKey, sortKey, itemJSON)
	if err != nil {
		return dbErr(err)
	}
	if existed == 0 {
		_, _ = e.db.ExecContext(ctx, `UPDATE ddb_tables SET item_count = item_count + 1 WHERE name = ?`, table)
	}
	return nil
}

// GetItem fetches one item, failing cmn.KindNotFound if absent (DynamoDB's
// real GetItem instead returns an empty response; adapters translate this
// engine-level not-found into that empty-body convention themselves).
func (e *Engine) GetItem(ctx context.Context, table, partitionKey, sortKey string) (*Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var it Item
	err := e.db.GetContext(ctx, &it,
		`SELECT * FROM ddb_items WHERE table_name=? AND partition_key=? AND sort_key=?`,
		table, partitionKey, sortKey)
	if err != nil {
		return nil, cmn.ErrNotFound("item", partitionKey+"/"+sortKey)
	}
	return &it, nil
}

func (e *Engine) DeleteItem(ctx context.Context, table, partitionKey, sortKey string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := e.db.ExecContext(ctx,
		`DELETE FROM ddb_items WHERE table_name=? AND partition_key=? AND sort_key=?`,
		table, partitionKey, sortKey)
	if err != nil {
		return dbErr(err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		_, _ = e.db.ExecContext(ctx, `UPDATE ddb_tables SET item_count = item_count - 1 WHERE name = ?`, table)
	}
	return nil
}

// QueryByPartition returns every item sharing a partition key, sort-key
// ascending — the common case for DynamoDB's Query operation without a
// sort-key condition expression.
func (e *Engine) QueryByPartition(ctx context.Context, table, partitionKey string) ([]Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var items []Item
	err := e.db.SelectContext(ctx, &items,
		`SELECT * FROM ddb_items WHERE table_name=? AND partition_key=? ORDER BY sort_key`,
		table, partitionKey)
	if err != nil {
		return nil, dbErr(err)
	}
	return items, nil
}

// ScanTable returns every item in a table, for DynamoDB's Scan operation.
func (e *Engine) ScanTable(ctx context.Context, table string) ([]Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.getTableLocked(ctx, table); err != nil {
		return nil, err
	}
	var items []Item
	err := e.db.SelectContext(ctx, &items,
		`SELECT * FROM ddb_items WHERE table_name=? ORDER BY partition_key, sort_key`, table)
	if err != nil {
		return nil, dbErr(err)
	}
	return items, nil
}
