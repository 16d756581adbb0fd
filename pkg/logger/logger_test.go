package logger

import (
	"testing"

	gormlogger "gorm.io/gorm/logger"

	"class-portal/backend/config"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "info", Format: format})
		if err != nil {
			t.Fatalf("format=%s 初始化失败: %v", format, err)
		}
		_ = l.Sync()
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	if _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("期望无效日志级别报错")
	}
}

func TestGormLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"debug":   gormlogger.Info,
		"info":    gormlogger.Warn,
		"error":   gormlogger.Error,
		"unknown": gormlogger.Warn,
	}
	for in, want := range cases {
		if got := GormLevel(in); got != want {
			t.Errorf("GormLevel(%q)=%v，期望 %v", in, got, want)
		}
	}
}
