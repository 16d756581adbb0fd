package errors

import (
	"errors"
	"strings"
)

// ── 通用错误分类 ──
// 各业务模块的哨兵错误通过 %w 包装这些分类，Handler 可统一按分类映射 HTTP 状态码

var (
	// ErrUnauthenticated 请求未携带有效身份
	ErrUnauthenticated = errors.New("未登录或登录已失效")
	// ErrForbidden 身份有效但无权访问该资源
	ErrForbidden = errors.New("无权访问该资源")
	// ErrNotFound 目标记录不存在
	ErrNotFound = errors.New("记录不存在")
	// ErrConstraintViolation 违反唯一约束等数据库约束
	ErrConstraintViolation = errors.New("数据约束冲突")
)

// FieldError 单个字段的校验失败
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 字段级校验失败的集合，整体返回给调用方
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "参数校验失败"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "参数校验失败: " + strings.Join(parts, "; ")
}

// Add 追加一个字段错误
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil 没有字段错误时返回 nil，便于在校验流程末尾直接 return
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidation 从错误链中取出 ValidationError
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
