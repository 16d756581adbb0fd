package handler

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"class-portal/backend/pkg/timeutil"
)

var registerOnce sync.Once

// RegisterValidators 向 gin 的校验引擎注册自定义标签：
//   - clock: HH:MM 或 HH:MM:SS
//   - weekday: ISO 星期 1-7
//
// 同时让字段错误使用 json/form 标签名，便于前端定位
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(tagName)
		_ = v.RegisterValidation("clock", validateClock)
		_ = v.RegisterValidation("weekday", validateWeekday)
	})
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func validateClock(fl validator.FieldLevel) bool {
	_, err := timeutil.ParseClock(fl.Field().String())
	return err == nil
}

func validateWeekday(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 1 && d <= 7
}
