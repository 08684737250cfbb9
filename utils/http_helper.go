package utils

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"roadmap_tutor/logger"
	"roadmap_tutor/models"
)

// WriteJSON 以指定状态码输出 JSON
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Warn("failed to encode response", "error", err)
	}
}

// WriteSuccessResponse 写入 200 响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteErrorResponse 写入错误响应，message 为空时使用错误码的默认消息
func WriteErrorResponse(w http.ResponseWriter, status, code int, message string) {
	WriteJSON(w, status, models.NewErrorResponse(code, message))
}

// WriteDomainErrorResponse 写入推荐业务错误响应（400）
func WriteDomainErrorResponse(w http.ResponseWriter, message string, availableTags []string) {
	WriteJSON(w, http.StatusBadRequest, models.NewDomainErrorResponse(message, availableTags))
}

// IsSQLNoRowsError 检查错误是否为SQL无结果错误
func IsSQLNoRowsError(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// HandleServiceError 处理服务层错误的通用函数：无数据时返回 404，其余 500
func HandleServiceError(w http.ResponseWriter, err error, noDataCode int) {
	if IsSQLNoRowsError(err) {
		WriteErrorResponse(w, http.StatusNotFound, noDataCode, "")
		return
	}
	logger.Error("service error", "error", err)
	WriteErrorResponse(w, http.StatusInternalServerError, models.CodeServerError, "")
}
