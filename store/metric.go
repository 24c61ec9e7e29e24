package store

import (
	"context"

	"github.com/NVIDIA/cloudemu/cmn"
)

// MetricDatum mirrors one `cw_metrics` row — append-only, per spec.md §3
// "Metrics are append-only with timestamp and dimensions".
type MetricDatum struct {
	ID         int64   `db:"id"`
	Namespace  string  `db:"namespace"`
	MetricName string  `db:"metric_name"`
	Dimensions *string `db:"dimensions"`
	Value      float64 `db:"value"`
	Unit       *string `db:"unit"`
	Timestamp  string  `db:"timestamp"`
}

// PutMetricData appends one datapoint (CloudWatch's PutMetricData takes a
// batch; adapters call this once per datum in the batch).
func (e *Engine) PutMetricData(ctx context.Context, namespace, metricName, dimensionsJSON string, value float64, unit string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err := e.db.ExecContext(ctx,
		`INSERT INTO cw_metrics (namespace, metric_name, dimensions, value, unit, timestamp) VALUES (?, ?, ?, ?, ?, ?)`,
		namespace, metricName, nullableStr(dimensionsJSON), value, nullableStr(unit), cmn.NowRFC3339())
	if err != nil {
		return dbErr(err)
	}
	return nil
}

// GetMetricData returns every datapoint for (namespace, metricName) within
// [startTime, endTime) (RFC3339 bounds), ordered by timestamp.
func (e *Engine) GetMetricData(ctx context.Context, namespace, metricName, startTime, endTime string) ([]MetricDatum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []MetricDatum
	err := e.db.SelectContext(ctx, &out,
		`SELECT * FROM cw_metrics WHERE namespace = ? AND metric_name = ? AND timestamp >= ? AND timestamp < ?
		 ORDER BY timestamp`, namespace, metricName, startTime, endTime)
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}

// ListMetrics returns the distinct (namespace, metric_name) pairs recorded
// so far, for CloudWatch's ListMetrics operation.
func (e *Engine) ListMetrics(ctx context.Context, namespace string) ([]MetricDatum, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []MetricDatum
	var err error
	if namespace != "" {
		err = e.db.SelectContext(ctx, &out,
			`SELECT DISTINCT namespace, metric_name FROM cw_metrics WHERE namespace = ?`, namespace)
	} else {
		err = e.db.SelectContext(ctx, &out, `SELECT DISTINCT namespace, metric_name FROM cw_metrics`)
	}
	if err != nil {
		return nil, dbErr(err)
	}
	return out, nil
}
