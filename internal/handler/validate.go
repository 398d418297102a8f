package handler

import (
	"net/http"

	"github.com/zhiban/zhiban/pkg/model"
	"github.com/zhiban/zhiban/pkg/validator"
)

// ValidateRequest 排班结果校验请求
type ValidateRequest struct {
	Period         model.Period           `json:"period" validate:"required"`
	Users          []model.User           `json:"users" validate:"required,min=1,dive"`
	Slots          []model.Slot           `json:"slots" validate:"required,min=1,dive"`
	Unavailability []model.Unavailability `json:"unavailability" validate:"dive"`
	Assignments    []model.Assignment     `json:"assignments" validate:"required"`
}

// ValidateResponse 校验响应
type ValidateResponse struct {
	Valid     bool                 `json:"valid"`
	Conflicts []validator.Conflict `json:"conflicts"`
}

// ValidateHandler 按硬规则校验一份已有排班
type ValidateHandler struct {
	validator *validator.RosterValidator
}

// NewValidateHandler 创建校验处理器
func NewValidateHandler() *ValidateHandler {
	return &ValidateHandler{validator: validator.NewRosterValidator()}
}

// Validate 校验提交的排班结果
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req ValidateRequest
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
	conflicts, err := h.validator.Validate(schedReq, req.Assignments)
	if err != nil {
		respondError(w, err)
		return
	}
	if conflicts == nil {
		conflicts = []validator.Conflict{}
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:     !validator.HasErrors(conflicts),
		Conflicts: conflicts,
	})
}
