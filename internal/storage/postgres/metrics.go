package postgres

import (
	"context"
	"fmt"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/heatmap"
)

// Filter scopes a metrics query to one organization and an inclusive
// epoch-second window. An empty Channel means "all channels".
type Filter struct {
	OrganizationID string
	From, To       int64
	Channel        string
}

// HeatmapMetric selects the value aggregated per heatmap cell.
type HeatmapMetric string

const (
	MetricRevenue HeatmapMetric = "revenue"
	MetricCount   HeatmapMetric = "count"
)

func (m HeatmapMetric) expr() (string, error) {
	switch m {
	case MetricRevenue, "":
		return "COALESCE(SUM(amount), 0)::float8", nil
	case MetricCount:
		return "COUNT(*)::float8", nil
	}
	return "", fmt.Errorf("unknown heatmap metric %q", m)
}

type MetricsTotals struct {
	Count       int64   `json:"count"`
	UniqueDonor int64   `json:"unique_donors"`
	Revenue     float64 `json:"revenue"`
}

type MetricsBucket struct {
	BucketStart int64   `json:"bucket_start"`
	Count       int64   `json:"count"`
	UniqueDonor int64   `json:"unique_donors"`
	Revenue     float64 `json:"revenue"`
}

// where builds the WHERE clause for f; placeholders start at $1.
func (f Filter) where() (string, []any) {
	cond := "WHERE organization_id = $1 AND ts_epoch >= $2 AND ts_epoch <= $3"
	args := []any{f.OrganizationID, f.From, f.To}
	if f.Channel != "" {
		args = append(args, f.Channel)
		cond += fmt.Sprintf(" AND channel = $%d", len(args))
	}
	return cond, args
}

func (db *DB) QueryTotals(ctx context.Context, f Filter) (MetricsTotals, error) {
	var res MetricsTotals
	cond, args := f.where()

	sql := "SELECT COUNT(*)::bigint, COUNT(DISTINCT donor_id)::bigint, COALESCE(SUM(amount), 0)::float8 FROM transactions " + cond
	row := db.Pool.QueryRow(ctx, sql, args...)
	if err := row.Scan(&res.Count, &res.UniqueDonor, &res.Revenue); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}
	return res, nil
}

func (db *DB) QueryBucketsDaily(ctx context.Context, f Filter) ([]MetricsBucket, error) {
	cond, args := f.where()

	sql := fmt.Sprintf(`
SELECT
  EXTRACT(EPOCH FROM date_trunc('day', to_timestamp(ts_epoch)))::bigint AS bucket_start,
  COUNT(*)::bigint AS cnt,
  COUNT(DISTINCT donor_id)::bigint AS uniq,
  COALESCE(SUM(amount), 0)::float8 AS revenue
FROM transactions
%s
GROUP BY 1
ORDER BY 1 ASC`, cond)

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query buckets: %w", err)
	}
	defer rows.Close()

	var out []MetricsBucket
	for rows.Next() {
		var b MetricsBucket
		if err := rows.Scan(&b.BucketStart, &b.Count, &b.UniqueDonor, &b.Revenue); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// QueryChannelTotals groups the window by attributed channel.
func (db *DB) QueryChannelTotals(ctx context.Context, f Filter) ([]attribution.ChannelTotal, error) {
	cond, args := f.where()
	args = append(args, string(attribution.LevelDeterministic))

	sql := fmt.Sprintf(`
SELECT
  channel,
  COUNT(*)::bigint,
  COALESCE(SUM(amount), 0)::float8,
  (COUNT(*) FILTER (WHERE confidence_level = $%d))::bigint
FROM transactions
%s
GROUP BY channel`, len(args), cond)

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query channel totals: %w", err)
	}
	defer rows.Close()

	var out []attribution.ChannelTotal
	for rows.Next() {
		var (
			ct attribution.ChannelTotal
			ch string
		)
		if err := rows.Scan(&ch, &ct.Count, &ct.Revenue, &ct.DeterministicCount); err != nil {
			return nil, fmt.Errorf("scan channel total: %w", err)
		}
		ct.Channel = attribution.Channel(ch)
		out = append(out, ct)
	}
	return out, rows.Err()
}

// QueryHeatmap aggregates the window by local day-of-week and hour in tz.
func (db *DB) QueryHeatmap(ctx context.Context, f Filter, metric HeatmapMetric, tz string) ([]heatmap.Row, error) {
	value, err := metric.expr()
	if err != nil {
		return nil, err
	}
	cond, args := f.where()
	if tz == "" {
		tz = "UTC"
	}
	args = append(args, tz)
	local := fmt.Sprintf("(to_timestamp(ts_epoch) AT TIME ZONE $%d)", len(args))

	sql := fmt.Sprintf(`
SELECT
  EXTRACT(DOW FROM %[1]s)::int AS dow,
  EXTRACT(HOUR FROM %[1]s)::int AS hr,
  %[2]s AS value
FROM transactions
%[3]s
GROUP BY 1, 2`, local, value, cond)

	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query heatmap: %w", err)
	}
	defer rows.Close()

	var out []heatmap.Row
	for rows.Next() {
		var r heatmap.Row
		if err := rows.Scan(&r.DayOfWeek, &r.Hour, &r.Value); err != nil {
			return nil, fmt.Errorf("scan heatmap row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
