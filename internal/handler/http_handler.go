package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
	"beaconchain_verifier/internal/report"
	"beaconchain_verifier/internal/usecase"
)

// A range sweep fires three upstream calls per epoch; cap it so one request
// cannot monopolize the rate-limited sources for hours.
const maxRangeEpochs = 320

// Handler exposes the run-invocation entry points. Each request drives one
// synchronous verification run and returns the full result collection; the
// report files are written as a side effect.
type Handler struct {
	orch           *usecase.Orchestrator
	sweep          *usecase.BalanceSweep
	forks          *domain.ForkRegistry
	providers      []string
	reportDir      string
	samplesPerFork int
}

func NewHandler(orch *usecase.Orchestrator, sweep *usecase.BalanceSweep, forks *domain.ForkRegistry, providers []string, reportDir string, samplesPerFork int) *Handler {
	return &Handler{
		orch:           orch,
		sweep:          sweep,
		forks:          forks,
		providers:      providers,
		reportDir:      reportDir,
		samplesPerFork: samplesPerFork,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{validator}/range", h.verifyRange)
	r.Get("/verify/{validator}/{epoch}", h.verifyEpoch)
	r.Get("/verify/historical", h.verifyHistorical)
}

func (h *Handler) verifyEpoch(w http.ResponseWriter, r *http.Request) {
	validator, err := strconv.ParseUint(chi.URLParam(r, "validator"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid validator index")
		return
	}
	epoch, err := strconv.ParseUint(chi.URLParam(r, "epoch"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid epoch")
		return
	}

	var ids []domain.Category
	if raw := r.URL.Query().Get("tests"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			ids = append(ids, domain.Category(strings.TrimSpace(t)))
		}
	}

	results := h.orch.RunEpoch(r.Context(), validator, epoch, ids)

	mdPath, jsonPath, err := report.WriteEpochReport(h.reportDir, validator, epoch, results)
	if err != nil {
		zap.L().Error("failed to write investigation files", zap.Error(err))
	}

	writeJSON(w, map[string]any{
		"results":         results,
		"report_markdown": mdPath,
		"report_json":     jsonPath,
	})
}

// verifyRange sweeps a contiguous epoch range with the dual-boundary balance
// comparison and reports which boundary definition the indexer follows.
func (h *Handler) verifyRange(w http.ResponseWriter, r *http.Request) {
	validator, err := strconv.ParseUint(chi.URLParam(r, "validator"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid validator index")
		return
	}

	q := r.URL.Query()
	start, err := strconv.ParseUint(q.Get("start"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid start epoch")
		return
	}
	end, err := strconv.ParseUint(q.Get("end"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid end epoch")
		return
	}
	if end < start {
		writeErrorJSON(w, http.StatusBadRequest, "end epoch before start epoch")
		return
	}
	if end-start+1 > maxRangeEpochs {
		writeErrorJSON(w, http.StatusBadRequest, "epoch range too large")
		return
	}

	probes, summary := h.sweep.Run(r.Context(), validator, start, end)

	mdPath, jsonPath, err := report.WriteRangeReport(h.reportDir, summary, probes)
	if err != nil {
		zap.L().Error("failed to write range report", zap.Error(err))
	}

	writeJSON(w, map[string]any{
		"summary":         summary,
		"epochs":          probes,
		"report_markdown": mdPath,
		"report_json":     jsonPath,
	})
}

func (h *Handler) verifyHistorical(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	validator, err := strconv.ParseUint(q.Get("validator"), 10, 64)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid validator index")
		return
	}

	samples := h.samplesPerFork
	if raw := q.Get("samples"); raw != "" {
		if samples, err = strconv.Atoi(raw); err != nil || samples < 1 {
			writeErrorJSON(w, http.StatusBadRequest, "invalid samples")
			return
		}
	}

	seed := time.Now().UnixNano()
	if raw := q.Get("seed"); raw != "" {
		if seed, err = strconv.ParseInt(raw, 10, 64); err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "invalid seed")
			return
		}
	}

	var phaseIDs []string
	if raw := q.Get("forks"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if !h.knownPhase(id) {
				writeErrorJSON(w, http.StatusBadRequest, "unknown fork: "+id)
				return
			}
			phaseIDs = append(phaseIDs, id)
		}
	}

	results, summaries := h.orch.RunHistorical(r.Context(), validator, samples, seed, phaseIDs)

	meta := report.Meta{
		Validator:    validator,
		CurrentEpoch: domain.EpochAt(time.Now()),
		Seed:         seed,
		Providers:    h.providers,
		Timestamp:    time.Now().UTC(),
	}
	mdPath, jsonPath, err := report.WriteHistoricalReport(h.reportDir, meta, summaries, results)
	if err != nil {
		zap.L().Error("failed to write historical report", zap.Error(err))
	}

	writeJSON(w, map[string]any{
		"metadata":        meta,
		"fork_summaries":  summaries,
		"results":         results,
		"report_markdown": mdPath,
		"report_json":     jsonPath,
	})
}

func (h *Handler) knownPhase(id string) bool {
	for _, p := range h.forks.Phases() {
		if p.ID == id {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("failed to write JSON response", zap.Error(err))
	}
}

func writeErrorJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		zap.L().Error("failed to write JSON error response", zap.Error(err))
	}
}
