package transporthttp

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/cache"
	"example.com/attribution/internal/config"
	"example.com/attribution/internal/domain"
	"example.com/attribution/internal/heatmap"
	"example.com/attribution/internal/ingest"
	spg "example.com/attribution/internal/storage/postgres"
)

// Store is the read side of the transaction database.
type Store interface {
	Ready(ctx context.Context) error
	QueryTotals(ctx context.Context, f spg.Filter) (spg.MetricsTotals, error)
	QueryBucketsDaily(ctx context.Context, f spg.Filter) ([]spg.MetricsBucket, error)
	QueryChannelTotals(ctx context.Context, f spg.Filter) ([]attribution.ChannelTotal, error)
	QueryHeatmap(ctx context.Context, f spg.Filter, metric spg.HeatmapMetric, tz string) ([]heatmap.Row, error)
}

// Queue accepts classified transactions for asynchronous persistence.
type Queue interface {
	Enqueue(tx domain.ClassifiedTransaction) bool
}

type ServerDeps struct {
	Cfg      config.Config
	Ingestor Queue
	DB       Store
	Cache    cache.Cache
	Rules    *attribution.RuleSet
	Log      *zap.Logger
	Now      func() time.Time
}

func decodeJSONStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func fieldProblems(prefix string, errs []domain.FieldError, into map[string][]string) {
	for _, fe := range errs {
		into[prefix+fe.Field] = append(into[prefix+fe.Field], fe.Msg)
	}
}

// --- Health ---

func (d *ServerDeps) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (d *ServerDeps) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := d.DB.Ready(r.Context()); err != nil {
		d.Log.Warn("readiness check failed", zap.Error(err))
		WriteProblem(w, http.StatusServiceUnavailable, "not ready", "database not reachable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- Transactions (single) ---

type acceptedResp struct {
	Status      string             `json:"status"`
	Key         string             `json:"idempotency_key"`
	Attribution attribution.Result `json:"attribution"`
}

func (d *ServerDeps) HandlePostTransaction(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	var tx domain.Transaction
	if err := decodeJSONStrict(r, &tx); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	if errs := domain.ValidateTransaction(&tx, d.Now(), d.Cfg.ClockSkew); len(errs) > 0 {
		prob := map[string][]string{}
		fieldProblems("", errs, prob)
		WriteProblem(w, http.StatusBadRequest, "validation failed", "one or more fields are invalid", prob)
		return
	}

	ct := ingest.Prepare(tx, d.Rules)
	if ok := d.Ingestor.Enqueue(ct); !ok {
		WriteProblem(w, http.StatusServiceUnavailable, "overloaded", "ingest queue is full, please retry", nil)
		return
	}
	d.Log.Debug("queued transaction",
		zap.String("organization_id", tx.OrganizationID),
		zap.String("channel", string(ct.Attribution.Channel)),
		zap.String("rule", ct.Attribution.AttributionMethod),
	)

	writeJSON(w, http.StatusAccepted, acceptedResp{Status: "queued", Key: ct.Key, Attribution: ct.Attribution})
}

// --- Transactions (bulk) ---

type bulkReq struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type bulkResp struct {
	AcceptedCount int                        `json:"accepted_count"`
	Channels      []attribution.ChannelTotal `json:"channels"`
}

func (d *ServerDeps) HandlePostTransactionsBulk(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	var br bulkReq
	if err := decodeJSONStrict(r, &br); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	ptrs := make([]*domain.Transaction, len(br.Transactions))
	for i := range br.Transactions {
		ptrs[i] = &br.Transactions[i]
	}
	if all, top := domain.ValidateBulk(ptrs, domain.MaxBulkItems, d.Now(), d.Cfg.ClockSkew); top != nil {
		prob := map[string][]string{}
		for i, arr := range all {
			fieldProblems("transactions["+strconv.Itoa(i)+"].", arr, prob)
		}
		WriteProblem(w, http.StatusBadRequest, "validation failed", top.Error(), prob)
		return
	}

	var tally attribution.Tally
	for i, tx := range br.Transactions {
		ct := ingest.Prepare(tx, d.Rules)
		if ok := d.Ingestor.Enqueue(ct); !ok {
			d.Log.Warn("ingest queue full during bulk", zap.Int("accepted", i), zap.Int("size", len(br.Transactions)))
			WriteProblem(w, http.StatusServiceUnavailable, "overloaded",
				"ingest queue is full after "+strconv.Itoa(i)+" transactions, please retry the rest", nil)
			return
		}
		tally.Add(ct.Attribution, tx.Amount)
	}
	d.Log.Debug("queued transactions (bulk)", zap.Int("count", len(br.Transactions)))

	writeJSON(w, http.StatusAccepted, bulkResp{AcceptedCount: len(br.Transactions), Channels: tally.Totals()})
}

// --- Stateless classification ---

const maxClassifyInputs = 1000

type classifyReq struct {
	OrganizationID string              `json:"organization_id,omitempty"`
	Input          *attribution.Input  `json:"input,omitempty"`
	Inputs         []attribution.Input `json:"inputs,omitempty"`
}

type classifyResp struct {
	Result  *attribution.Result  `json:"result,omitempty"`
	Results []attribution.Result `json:"results,omitempty"`
	Summary *attribution.Summary `json:"summary,omitempty"`
}

func (d *ServerDeps) HandleClassify(w http.ResponseWriter, r *http.Request) {
	defer DrainBody(r)
	var req classifyReq
	if err := decodeJSONStrict(r, &req); err != nil {
		WriteProblem(w, http.StatusBadRequest, "invalid json", err.Error(), nil)
		return
	}
	c := d.Rules.Classifier(req.OrganizationID)

	switch {
	case req.Input != nil && len(req.Inputs) > 0:
		WriteProblem(w, http.StatusBadRequest, "invalid request", "provide either input or inputs, not both", nil)
	case req.Input != nil:
		res := c.Classify(*req.Input)
		writeJSON(w, http.StatusOK, classifyResp{Result: &res})
	case len(req.Inputs) > maxClassifyInputs:
		WriteProblem(w, http.StatusBadRequest, "invalid request", "inputs: max "+strconv.Itoa(maxClassifyInputs)+" items", nil)
	case len(req.Inputs) > 0:
		var tally attribution.Tally
		out := make([]attribution.Result, len(req.Inputs))
		for i, in := range req.Inputs {
			out[i] = c.Classify(in)
			tally.Add(out[i], 0)
		}
		summary := tally.Summary()
		writeJSON(w, http.StatusOK, classifyResp{Results: out, Summary: &summary})
	default:
		WriteProblem(w, http.StatusBadRequest, "invalid request", "input or inputs is required", nil)
	}
}
