package handler

import (
	"net/http"

	"github.com/zhiban/zhiban/internal/metrics"
	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/stats"
)

// FairnessStatsRequest 公平性分析请求
type FairnessStatsRequest struct {
	Period         model.Period           `json:"period" validate:"required"`
	Users          []model.User           `json:"users" validate:"required,min=1,dive"`
	Slots          []model.Slot           `json:"slots" validate:"required,min=1,dive"`
	Unavailability []model.Unavailability `json:"unavailability" validate:"dive"`
	Assignments    []model.Assignment     `json:"assignments" validate:"required"`
}

// FairnessStatsResponse 公平性分析响应
type FairnessStatsResponse struct {
	Success bool                   `json:"success"`
	Data    *stats.FairnessMetrics `json:"data,omitempty"`
}

// StatsHandler 统计分析处理器
type StatsHandler struct {
	analyzer *stats.FairnessAnalyzer
}

// NewStatsHandler 创建统计分析处理器
func NewStatsHandler() *StatsHandler {
	return &StatsHandler{analyzer: stats.NewFairnessAnalyzer()}
}

// Fairness 分析一份排班结果的公平性
func (h *StatsHandler) Fairness(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req FairnessStatsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	schedReq := &model.ScheduleRequest{
		Period:         req.Period,
		Users:          req.Users,
		Slots:          req.Slots,
		Unavailability: req.Unavailability,
	}
	m, err := h.analyzer.Analyze(schedReq, req.Assignments)
	if err != nil {
		respondError(w, err)
		return
	}

	metrics.SetFairnessGini("total", m.TotalGini)
	metrics.SetFairnessGini("night", m.NightGini)
	metrics.SetFairnessGini("weekend", m.WeekendGini)

	respondJSON(w, http.StatusOK, FairnessStatsResponse{Success: true, Data: m})
}
