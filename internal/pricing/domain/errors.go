package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter 输入参数不合法
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrResultNotFound 没有定价记录
	ErrResultNotFound = errors.New("pricing result not found")
	// ErrHistoryDisabled 未配置定价历史存储
	ErrHistoryDisabled = errors.New("pricing history is not enabled")
)

// ParameterError 描述具体哪个参数不合法
type ParameterError struct {
	Field  string
	Value  any
	Reason string
}

// NewParameterError 创建参数错误
func NewParameterError(field string, value any, reason string) *ParameterError {
	return &ParameterError{Field: field, Value: value, Reason: reason}
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap 使 errors.Is(err, ErrInvalidParameter) 成立
func (e *ParameterError) Unwrap() error { return ErrInvalidParameter }
