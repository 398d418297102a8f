package handler

import (
	"net/http"
	"time"

	"github.com/zhiban/zhiban/internal/config"
	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/solver"
)

// SeniorScheduleHandler 总值班模式排班处理器
type SeniorScheduleHandler struct {
	solver *solver.SeniorSolver
}

// NewSeniorScheduleHandler 创建总值班模式排班处理器
func NewSeniorScheduleHandler(cfg *config.Config) *SeniorScheduleHandler {
	opts := solver.Options{
		TimeLimitSeconds: cfg.Scheduler.TimeLimitSeconds,
		RandomSeed:       cfg.Scheduler.RandomSeed,
		NumWorkers:       cfg.Scheduler.NumWorkers,
	}
	return &SeniorScheduleHandler{solver: solver.NewSenior(opts, cfg.Penalty)}
}

// Generate 生成总值班模式排班
func (h *SeniorScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req model.SeniorScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	start := time.Now()
	resp, err := h.solver.Solve(r.Context(), &req)
	if err != nil {
		metrics.RecordSolve("senior", "error", time.Since(start), 0)
		respondError(w, err)
		return
	}

	metrics.RecordSolve("senior", resp.Meta.SolverStatus, time.Since(start), resp.Meta.UnavailabilityViolations)
	respondJSON(w, http.StatusOK, resp)
}

// Health 总值班模式存活探针，不做任何求解
func (h *SeniorScheduleHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   "senior",
	})
}
