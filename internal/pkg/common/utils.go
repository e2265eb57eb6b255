package common

import (
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// Float64Ptr 取得 float64 指標
func Float64Ptr(v float64) *float64 {
	return &v
}

// IntPtr 取得 int 指標
func IntPtr(v int) *int {
	return &v
}
