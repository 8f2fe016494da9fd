package transporthttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/cache"
	"example.com/attribution/internal/heatmap"
	"example.com/attribution/internal/kpi"
	spg "example.com/attribution/internal/storage/postgres"
)

const defaultWindowSeconds = int64(24 * 60 * 60)  // last 24h default
const maxWindowSeconds = int64(90 * 24 * 60 * 60) // cap at 90 days (guardrail)

const (
	defaultTopN = 5
	maxTopN     = heatmap.Cells
)

type window struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// previous is the equal-length window ending just before w.
func (w window) previous() window {
	to := w.From - 1
	return window{From: to - (w.To - w.From), To: to}
}

var errBadWindow = errors.New("from and to must be epoch seconds with from <= to")

// parseWindow resolves optional from/to epoch-second parameters. A missing
// bound defaults to a 24h window anchored on the other bound (or now).
func parseWindow(q url.Values, now int64) (window, error) {
	fromStr, toStr := q.Get("from"), q.Get("to")
	var (
		w   window
		err error
	)
	switch {
	case fromStr == "" && toStr == "":
		w = window{From: now - defaultWindowSeconds, To: now}
	case fromStr != "" && toStr == "":
		if w.From, err = strconv.ParseInt(fromStr, 10, 64); err != nil {
			return w, errBadWindow
		}
		w.To = now
	case fromStr == "" && toStr != "":
		if w.To, err = strconv.ParseInt(toStr, 10, 64); err != nil {
			return w, errBadWindow
		}
		w.From = w.To - defaultWindowSeconds
	default:
		if w.From, err = strconv.ParseInt(fromStr, 10, 64); err != nil {
			return w, errBadWindow
		}
		if w.To, err = strconv.ParseInt(toStr, 10, 64); err != nil {
			return w, errBadWindow
		}
	}
	if w.From > w.To {
		return w, errBadWindow
	}
	// guardrail: cap excessively large ranges
	if w.To-w.From > maxWindowSeconds {
		w.From = w.To - maxWindowSeconds
	}
	return w, nil
}

// metricsFilter reads organization_id, channel and the window from q.
func (d *ServerDeps) metricsFilter(w http.ResponseWriter, q url.Values) (spg.Filter, bool) {
	org := strings.TrimSpace(q.Get("organization_id"))
	if org == "" {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "organization_id is required", nil)
		return spg.Filter{}, false
	}
	win, err := parseWindow(q, d.Now().Unix())
	if err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", err.Error(), nil)
		return spg.Filter{}, false
	}
	channel := strings.TrimSpace(q.Get("channel"))
	if channel != "" && !attribution.Channel(channel).Valid() {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "unknown channel "+strconv.Quote(channel), nil)
		return spg.Filter{}, false
	}
	return spg.Filter{OrganizationID: org, From: win.From, To: win.To, Channel: channel}, true
}

// serveCached writes the cached body for key, or builds, stores and writes it.
// Cache failures are logged and never fail the request.
func (d *ServerDeps) serveCached(w http.ResponseWriter, r *http.Request, key string, build func(ctx context.Context) (any, error)) {
	ctx := r.Context()
	if body, ok, err := d.Cache.Get(ctx, key); err != nil {
		d.Log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		w.Header().Set("X-Cache", "hit")
		writeRawJSON(w, http.StatusOK, body)
		return
	}

	v, err := build(ctx)
	if err != nil {
		d.Log.Error("metrics query failed", zap.String("key", key), zap.Error(err))
		WriteProblem(w, http.StatusInternalServerError, "query error", "failed to load metrics", nil)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		WriteProblem(w, http.StatusInternalServerError, "encode error", err.Error(), nil)
		return
	}
	if err := d.Cache.Set(ctx, key, body, d.Cfg.CacheTTL); err != nil {
		d.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	w.Header().Set("X-Cache", "miss")
	writeRawJSON(w, http.StatusOK, body)
}

// --- Totals ---

type metricsResp struct {
	Totals  spg.MetricsTotals   `json:"totals"`
	Buckets []spg.MetricsBucket `json:"buckets"`
}

func (d *ServerDeps) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ok := d.metricsFilter(w, q)
	if !ok {
		return
	}
	groupBy := q.Get("group_by")
	if groupBy != "" && groupBy != "day" {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "group_by must be day", nil)
		return
	}

	ctx := r.Context()
	tot, err := d.DB.QueryTotals(ctx, f)
	if err != nil {
		d.Log.Error("query totals failed", zap.Error(err))
		WriteProblem(w, http.StatusInternalServerError, "query error", "failed to load totals", nil)
		return
	}
	resp := metricsResp{Totals: tot}
	if groupBy == "day" {
		if resp.Buckets, err = d.DB.QueryBucketsDaily(ctx, f); err != nil {
			d.Log.Error("query buckets failed", zap.Error(err))
			WriteProblem(w, http.StatusInternalServerError, "query error", "failed to load buckets", nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Attribution breakdown ---

type attributionResp struct {
	Window         window              `json:"window"`
	PreviousWindow window              `json:"previous_window"`
	Current        attribution.Summary `json:"current"`
	Previous       attribution.Summary `json:"previous"`
	Cards          []kpi.Card          `json:"cards"`
}

func (d *ServerDeps) HandleAttribution(w http.ResponseWriter, r *http.Request) {
	f, ok := d.metricsFilter(w, r.URL.Query())
	if !ok {
		return
	}
	// The breakdown is always across every channel.
	f.Channel = ""
	cur := window{From: f.From, To: f.To}
	prev := cur.previous()
	key := cache.Key("attribution", f.OrganizationID, strconv.FormatInt(cur.From, 10), strconv.FormatInt(cur.To, 10))

	d.serveCached(w, r, key, func(ctx context.Context) (any, error) {
		var curRows, prevRows []attribution.ChannelTotal
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			curRows, err = d.DB.QueryChannelTotals(gctx, f)
			return err
		})
		g.Go(func() error {
			pf := f
			pf.From, pf.To = prev.From, prev.To
			var err error
			prevRows, err = d.DB.QueryChannelTotals(gctx, pf)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		c, p := attribution.Summarize(curRows), attribution.Summarize(prevRows)
		return attributionResp{
			Window:         cur,
			PreviousWindow: prev,
			Current:        c,
			Previous:       p,
			Cards:          attributionCards(c, p),
		}, nil
	})
}

func attributionCards(cur, prev attribution.Summary) []kpi.Card {
	return []kpi.Card{
		kpi.NewCard("Revenue", cur.TotalRevenue, prev.TotalRevenue, kpi.FormatCurrency),
		kpi.NewCard("Donations", float64(cur.TotalCount), float64(prev.TotalCount), kpi.FormatCount),
		kpi.NewCard("Deterministic attribution", cur.DeterministicRate, prev.DeterministicRate, kpi.FormatRate),
		kpi.NewCard("Attributed", cur.AttributedRate, prev.AttributedRate, kpi.FormatRate),
	}
}

// --- Heatmap ---

type heatmapResp struct {
	Window   window            `json:"window"`
	Metric   spg.HeatmapMetric `json:"metric"`
	Timezone string            `json:"timezone"`
	Grid     heatmap.Grid      `json:"grid"`
	Stats    heatmap.Stats     `json:"stats"`
}

func (d *ServerDeps) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, ok := d.metricsFilter(w, q)
	if !ok {
		return
	}

	metric := spg.HeatmapMetric(q.Get("metric"))
	if metric == "" {
		metric = spg.MetricRevenue
	}
	if metric != spg.MetricRevenue && metric != spg.MetricCount {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "metric must be revenue or count", nil)
		return
	}

	tz := q.Get("tz")
	if tz == "" {
		tz = d.Cfg.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid parameters", "unknown timezone "+strconv.Quote(tz), nil)
		return
	}

	topN := defaultTopN
	if s := q.Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > maxTopN {
			WriteProblem(w, http.StatusBadRequest, "invalid parameters", "top must be between 0 and "+strconv.Itoa(maxTopN), nil)
			return
		}
		topN = n
	}

	key := cache.Key("heatmap", f.OrganizationID, f.Channel, string(metric), tz, strconv.Itoa(topN),
		strconv.FormatInt(f.From, 10), strconv.FormatInt(f.To, 10))

	d.serveCached(w, r, key, func(ctx context.Context) (any, error) {
		rows, err := d.DB.QueryHeatmap(ctx, f, metric, tz)
		if err != nil {
			return nil, err
		}
		grid := heatmap.Normalize(rows)
		return heatmapResp{
			Window:   window{From: f.From, To: f.To},
			Metric:   metric,
			Timezone: tz,
			Grid:     grid,
			Stats:    heatmap.ComputeStats(grid, topN),
		}, nil
	})
}
