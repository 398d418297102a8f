// Package handler 提供HTTP请求处理器
package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/zhiban/zhiban/pkg/errors"
	"github.com/zhiban/zhiban/pkg/logger"
)

// validate 进程级请求校验器
var validate = validator.New()

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error   bool                   `json:"error"`
	Code    errors.Code            `json:"code"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// respondJSON 输出JSON响应
func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Msg("响应编码失败")
	}
}

// respondError 输出错误响应
func respondError(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)
	body := ErrorResponse{
		Error:   true,
		Code:    errors.GetCode(err),
		Message: err.Error(),
	}
	if appErr, ok := err.(*errors.AppError); ok {
		body.Message = appErr.Message
		body.Details = appErr.Details
		body.Fields = appErr.Fields
	}
	if status >= http.StatusInternalServerError {
		logger.WithError(err).Msg("请求处理失败")
	}
	respondJSON(w, status, body)
}

// decodeBody 解析并校验JSON请求体
func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrap(err, errors.CodeInvalidRequest, "解析请求失败")
	}
	if err := validate.Struct(dst); err != nil {
		return errors.Wrap(err, errors.CodeInvalidRequest, "请求字段校验失败").
			WithDetails(err.Error())
	}
	return nil
}

// requirePost 限定POST方法
func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidRequest, "仅支持POST方法"))
		return false
	}
	return true
}
