// Package handlers HTTP 處理器共用的回應與解碼工具
package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"kitchen-api/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RespondError 將錯誤轉為統一的 JSON 錯誤回應
func RespondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)

	resp := common.ErrorResponse{Code: ce.Code, Message: ce.Message}
	if gin.Mode() == gin.DebugMode && ce.Err != nil {
		resp.Details = ce.Err.Error()
	}

	fields := []zap.Field{
		zap.String("code", ce.Code),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗", fields...)
	} else {
		common.LogDebug("請求被拒絕", fields...)
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, resp)
}

// BindJSON 嚴格解碼請求體，失敗時回應 400 並回傳 false
func BindJSON(c *gin.Context, v interface{}) bool {
	if err := common.DecodeJSONStrict(c.Request.Body, v); err != nil {
		RespondError(c, common.WithMessage(common.ErrInvalidRequest, "invalid request body: "+err.Error()))
		return false
	}
	return true
}

// BindOptionalJSON 同 BindJSON，但允許空的請求體
func BindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.Body == nil {
		return true
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, common.WithMessage(common.ErrInvalidRequest, "request body too large"))
			return false
		}
		RespondError(c, common.WithMessage(common.ErrInvalidRequest, "failed to read request body"))
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	if err := common.DecodeJSONStrict(bytes.NewReader(body), v); err != nil {
		RespondError(c, common.WithMessage(common.ErrInvalidRequest, "invalid request body: "+err.Error()))
		return false
	}
	return true
}
