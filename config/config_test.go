package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:  ServerConfig{Port: 8080},
		Auth:    AuthConfig{JWTSecret: "test-secret-key-for-unit-testing"},
		Storage: StorageConfig{MaxUploadMB: 20},
		App:     AppConfig{Timezone: "Asia/Ho_Chi_Minh"},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("合法配置不应报错: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Error("期望 jwt_secret 过短时报错")
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("期望端口越界时报错")
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.App.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Error("期望时区无效时报错")
	}
}

func TestValidate_UploadLimit(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.MaxUploadMB = 0
	if err := cfg.Validate(); err == nil {
		t.Error("期望上传上限为 0 时报错")
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
auth:
  jwt_secret: "file-secret-0123456789"
  access_token_ttl: 10m
storage:
  max_upload_mb: 5
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	t.Setenv("PORTAL_SERVER_PORT", "9191")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("环境变量应覆盖配置文件，期望 9191，实际 %d", cfg.Server.Port)
	}
	if cfg.Auth.AccessTokenTTL != 10*time.Minute {
		t.Errorf("期望 access_token_ttl=10m，实际 %v", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Storage.MaxUploadBytes() != 5<<20 {
		t.Errorf("期望上传上限 5MB，实际 %d", cfg.Storage.MaxUploadBytes())
	}
	if cfg.App.Location().String() != "Asia/Ho_Chi_Minh" {
		t.Errorf("期望默认业务时区 Asia/Ho_Chi_Minh，实际 %s", cfg.App.Location())
	}
}
