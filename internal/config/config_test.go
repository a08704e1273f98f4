package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultValues(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Export.ErrorsLog != "errors.log" {
		t.Errorf("Expected ERRORS_LOG default 'errors.log', got '%s'", cfg.Export.ErrorsLog)
	}
	if cfg.Export.MapsFile != "" {
		t.Errorf("Expected empty MAPS_FILE, got '%s'", cfg.Export.MapsFile)
	}
	if cfg.Export.UsrconnidKey != "smart2onyma:usrconnid" {
		t.Errorf("Unexpected USRCONNID_REDIS_KEY default '%s'", cfg.Export.UsrconnidKey)
	}
	if cfg.Redis.Enabled() {
		t.Error("Expected redis to be disabled without REDIS_ADDR")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("Expected LOG_FORMAT default 'console', got '%s'", cfg.Log.Format)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("ERRORS_LOG", "/tmp/export-errors.log")
	t.Setenv("MAPS_FILE", "/etc/smart2onyma/maps.yaml")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Redis.Addr != "redis:6379" || cfg.Redis.DB != 2 {
		t.Errorf("Unexpected redis config %+v", cfg.Redis)
	}
	if cfg.Export.ErrorsLog != "/tmp/export-errors.log" {
		t.Errorf("Expected ERRORS_LOG override, got '%s'", cfg.Export.ErrorsLog)
	}
	if cfg.Export.MapsFile != "/etc/smart2onyma/maps.yaml" {
		t.Errorf("Expected MAPS_FILE override, got '%s'", cfg.Export.MapsFile)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	if value := getEnv("TEST_VAR", "default"); value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}
	if value := getEnv("NON_EXISTENT_VAR", "default-value"); value != "default-value" {
		t.Errorf("Expected 'default-value', got '%s'", value)
	}
}
