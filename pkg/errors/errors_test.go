package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError_OrNil(t *testing.T) {
	ve := &ValidationError{}
	if ve.OrNil() != nil {
		t.Fatal("无字段错误时 OrNil 应返回 nil")
	}

	ve.Add("start_time", "开始时间必须早于结束时间")
	ve.Add("class_code", "班级代码已存在")
	err := ve.OrNil()
	if err == nil {
		t.Fatal("存在字段错误时 OrNil 应返回错误")
	}

	wrapped := fmt.Errorf("创建班级: %w", err)
	got, ok := AsValidation(wrapped)
	if !ok {
		t.Fatal("AsValidation 应能穿透包装取出 ValidationError")
	}
	if len(got.Fields) != 2 {
		t.Errorf("期望 2 个字段错误，实际 %d", len(got.Fields))
	}
	if got.Fields[0].Field != "start_time" {
		t.Errorf("字段错误顺序应与追加顺序一致，实际首个为 %s", got.Fields[0].Field)
	}
}

func TestWrappedNotFound(t *testing.T) {
	errClass := fmt.Errorf("%w: 班级不存在", ErrNotFound)
	if !errors.Is(errClass, ErrNotFound) {
		t.Error("包装后的错误应能被识别为 ErrNotFound")
	}
	if errors.Is(errClass, ErrForbidden) {
		t.Error("不应被识别为 ErrForbidden")
	}
}
