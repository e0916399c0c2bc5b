package common

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// HashString 計算字串的 SHA-256 十六進位值
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// WriteError 依 CustomError 寫入錯誤響應
func WriteError(c *gin.Context, err error) {
	resp := ErrorResponse{Code: ErrCodeInternalError, Message: err.Error()}
	var ce *CustomError
	if errors.As(err, &ce) {
		resp.Code = ce.Code
		resp.Message = ce.Message
		if ce.Err != nil && gin.Mode() == gin.DebugMode {
			resp.Details = ce.Err.Error()
		}
	}
	c.AbortWithStatusJSON(StatusOf(err), resp)
}
