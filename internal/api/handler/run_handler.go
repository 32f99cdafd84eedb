package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"go-station-index/internal/config"
	"go-station-index/internal/metrics"
	"go-station-index/internal/pipeline"
	"go-station-index/internal/store"
	"go-station-index/pkg/utils"
)

// RunHandler serves the run endpoints. Metrics is optional; nil disables
// instrumentation.
type RunHandler struct {
	Metrics *metrics.Collector
}

// CreateRun creates and starts a new index run
// @Summary Create a new index run
// @Description Submit a run spec; the run executes asynchronously
// @Tags runs
// @Accept json
// @Produce json
// @Param spec body model.RunSpec true "Run spec"
// @Success 202 {object} map[string]interface{} "Run accepted"
// @Failure 400 {object} map[string]interface{} "Invalid run spec"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [post]
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	spec, err := config.ParseRunSpec(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := uuid.New().String()
	if err := store.SaveRun(runID, spec); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save run")
		return
	}

	timeout := utils.ParseDuration(spec.Concurrency.RunTimeout, 5*time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	go func() {
		defer cancel()
		if h.Metrics != nil {
			h.Metrics.RunsStarted.Inc()
		}
		res, err := pipeline.Run(ctx, runID, spec)
		if h.Metrics == nil {
			return
		}
		if err != nil {
			h.Metrics.RunsFailed.Inc()
			return
		}
		h.Metrics.RunsCompleted.Inc()
		h.Metrics.RunDuration.Observe(res.Duration.Seconds())
		h.Metrics.RowsNormalized.Add(float64(res.Stats.RawRows - res.Stats.Total()))
		for reason, count := range res.Stats.Skipped {
			h.Metrics.RowsSkipped.WithLabelValues(reason).Add(float64(count))
		}
		h.Metrics.StationsIndexed.Set(float64(len(res.Index)))
		if len(res.Report.Failed) > 0 {
			h.Metrics.ReportsFailed.Inc()
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"message":   "Run accepted",
		"runID":     runID,
		"status":    "pending",
		"createdAt": time.Now().UTC(),
	})
}

// ListRuns lists all runs
// @Summary List runs
// @Tags runs
// @Produce json
// @Success 200 {array} map[string]interface{} "Runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /runs [get]
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := store.ListRuns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one run's spec and status
// @Summary Get run
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run details"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id} [get]
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := store.GetRun(chi.URLParam(r, "id"))
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRunIndex returns the station index built by a run
// @Summary Get run index
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} model.StationIndexEntry "Station index"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /runs/{id}/index [get]
func (h *RunHandler) GetRunIndex(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	entries, err := store.GetIndexEntries(runID)
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	if entries == nil {
		// Distinguish "no index yet" from an unknown run.
		if _, err := store.GetRun(runID); err != nil {
			notFoundOr500(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetRunReport returns the validation report of a run
// @Summary Get run validation report
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.ValidationReport "Validation report"
// @Failure 404 {object} map[string]interface{} "Report not found"
// @Router /runs/{id}/report [get]
func (h *RunHandler) GetRunReport(w http.ResponseWriter, r *http.Request) {
	report, err := store.GetValidationReport(chi.URLParam(r, "id"))
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetRunErrors returns the recorded errors of a run
// @Summary Get run errors
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} map[string]interface{} "Errors"
// @Router /runs/{id}/errors [get]
func (h *RunHandler) GetRunErrors(w http.ResponseWriter, r *http.Request) {
	out, err := store.GetRunErrors(chi.URLParam(r, "id"))
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRunLogs returns the stage logs of a run
// @Summary Get run logs
// @Tags runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {array} map[string]interface{} "Logs"
// @Router /runs/{id}/logs [get]
func (h *RunHandler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	out, err := store.GetRunLogs(chi.URLParam(r, "id"))
	if err != nil {
		notFoundOr500(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"error": msg})
}

func notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
