package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nairav/amlscan/internal/detect"
	"github.com/nairav/amlscan/internal/service"
)

// APIHandlers exposes HTTP handlers for the detection API.
type APIHandlers struct {
	logger  *slog.Logger
	service *service.DetectionService
	metrics *Metrics
}

// NewAPIHandlers constructs an APIHandlers instance. metrics may be nil when
// metrics are disabled.
func NewAPIHandlers(logger *slog.Logger, svc *service.DetectionService, metrics *Metrics) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
		metrics: metrics,
	}
}

// detectRequest is the optional body of POST /detect. Absent fields fall back
// to configured defaults.
type detectRequest struct {
	MaxHops        *int             `json:"max_hops"`
	TolerancePct   *float64         `json:"tolerance_pct"`
	ExplorationCap *int             `json:"exploration_cap"`
	MinSenders     *int             `json:"min_senders"`
	WindowDuration string           `json:"window_duration"`
	MaxPerTxn      *decimal.Decimal `json:"max_per_txn"`
	MinAggregate   *decimal.Decimal `json:"min_aggregate"`
	Ranking        string           `json:"ranking"`
}

func (h *APIHandlers) handleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	params, err := h.decodeRunParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	started := time.Now()
	report, err := h.service.Run(r.Context(), params)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOptions) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("detection run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "detection run failed")
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveRun(time.Since(started), len(report.Cycles), len(report.Structuring))
	}

	respondJSON(w, http.StatusOK, report)
}

func (h *APIHandlers) decodeRunParams(r *http.Request) (service.RunParams, error) {
	var params service.RunParams
	if r.Body == nil || r.ContentLength == 0 {
		return params, nil
	}

	var req detectRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return params, errors.New("invalid request body: " + err.Error())
	}

	params.MaxHops = req.MaxHops
	params.TolerancePct = req.TolerancePct
	params.ExplorationCap = req.ExplorationCap
	params.MinSenders = req.MinSenders
	params.MaxPerTxn = req.MaxPerTxn
	params.MinAggregate = req.MinAggregate
	params.Ranking = detect.RankPolicy(strings.TrimSpace(req.Ranking))

	if req.WindowDuration != "" {
		d, err := time.ParseDuration(req.WindowDuration)
		if err != nil {
			return params, errors.New("invalid window_duration: " + err.Error())
		}
		params.WindowDuration = &d
	}

	return params, nil
}

func (h *APIHandlers) handleGraphStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	accounts, transactions, skipped := h.service.GraphStats()
	respondJSON(w, http.StatusOK, map[string]int{
		"accounts":        accounts,
		"transactions":    transactions,
		"skipped_records": skipped,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
