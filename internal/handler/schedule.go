package handler

import (
	"net/http"
	"time"

	"github.com/zhiban/zhiban/internal/config"
	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/scheduler/solver"
)

// ScheduleHandler 标准模式排班处理器
type ScheduleHandler struct {
	solver *solver.Solver
}

// NewScheduleHandler 创建标准模式排班处理器
func NewScheduleHandler(cfg *config.Config) *ScheduleHandler {
	opts := solver.Options{
		TimeLimitSeconds: cfg.Scheduler.TimeLimitSeconds,
		RandomSeed:       cfg.Scheduler.RandomSeed,
		NumWorkers:       cfg.Scheduler.NumWorkers,
	}
	return &ScheduleHandler{solver: solver.New(opts, cfg.Penalty)}
}

// Generate 生成标准模式排班。
// 无可行解不是错误：仍返回 200，状态在 meta.solverStatus 中。
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req model.ScheduleRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	start := time.Now()
	resp, err := h.solver.Solve(r.Context(), &req)
	if err != nil {
		metrics.RecordSolve("standard", "error", time.Since(start), 0)
		respondError(w, err)
		return
	}

	metrics.RecordSolve("standard", resp.Meta.SolverStatus, time.Since(start), resp.Meta.UnavailabilityViolations)
	respondJSON(w, http.StatusOK, resp)
}

// Health 标准模式存活探针，不做任何求解
func (h *ScheduleHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   "standard",
	})
}
