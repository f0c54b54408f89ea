package config

import (
	"errors"
	"os"
	"testing"
)

func clearEnv() {
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("REDIS_URL")
	os.Unsetenv("CORS_ALLOWED_ORIGINS")
	os.Unsetenv("TRACING_ENABLED")
	os.Unsetenv("TRACING_OTLP_ENDPOINT")
	os.Unsetenv("TRACING_SAMPLING_RATE")
	os.Unsetenv("MURAL_PORT")
	os.Unsetenv("PORT")
	os.Unsetenv("MURAL_ENV")
	os.Unsetenv("ENV")
	os.Unsetenv("GO_ENV")
}

func TestLoad_MissingMandatory(t *testing.T) {
	tests := []struct {
		name             string
		envVars          map[string]string
		wantErrCount     int
		checkSpecificErr error
	}{
		{
			name:             "no environment variables set",
			envVars:          map[string]string{},
			wantErrCount:     1,
			checkSpecificErr: ErrMissingDatabaseURL,
		},
		{
			name: "DATABASE_URL set",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			wantErrCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			defer clearEnv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			_, errs := Load("")
			if len(errs) != tt.wantErrCount {
				t.Errorf("Load() returned %d errors, want %d: %v", len(errs), tt.wantErrCount, errs)
			}
			if tt.checkSpecificErr != nil {
				found := false
				for _, err := range errs {
					if errors.Is(err, tt.checkSpecificErr) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("Load() errors %v do not include %v", errs, tt.checkSpecificErr)
				}
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()
	defer clearEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() returned unexpected errors: %v", errs)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.Env != DefaultEnv {
		t.Errorf("Env = %q, want %q", cfg.Env, DefaultEnv)
	}
	if cfg.TracingEnabled {
		t.Error("TracingEnabled = true, want false by default")
	}
	if cfg.TracingSamplingRate != DefaultTracingSamplingRate {
		t.Errorf("TracingSamplingRate = %v, want %v", cfg.TracingSamplingRate, DefaultTracingSamplingRate)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoad_EnvPrecedence(t *testing.T) {
	clearEnv()
	defer clearEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("MURAL_PORT", "9090")
	os.Setenv("PORT", "3000")
	os.Setenv("MURAL_ENV", "production")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() returned unexpected errors: %v", errs)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want MURAL_PORT to win over PORT (9090)", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("Env = %q, want %q", cfg.Env, "production")
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv()
	defer clearEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("PORT", "not-a-number")

	_, errs := Load("")
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrInvalidPort) {
			found = true
		}
	}
	if !found {
		t.Errorf("Load() errors %v do not include ErrInvalidPort", errs)
	}
}

func TestLoad_InvalidSamplingRate(t *testing.T) {
	clearEnv()
	defer clearEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("TRACING_SAMPLING_RATE", "1.5")

	_, errs := Load("")
	found := false
	for _, err := range errs {
		if errors.Is(err, ErrInvalidSampling) {
			found = true
		}
	}
	if !found {
		t.Errorf("Load() errors %v do not include ErrInvalidSampling", errs)
	}
}

func TestLoad_CORSOrigins(t *testing.T) {
	clearEnv()
	defer clearEnv()
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://mural.example.com, http://localhost:5173")

	cfg, errs := Load("")
	if len(errs) != 0 {
		t.Fatalf("Load() returned unexpected errors: %v", errs)
	}
	want := []string{"https://mural.example.com", "http://localhost:5173"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("CORSAllowedOrigins = %v, want %v", cfg.CORSAllowedOrigins, want)
	}
	for i, origin := range want {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Errorf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv()
	defer clearEnv()

	_, errs := Load("/nonexistent/config.yaml")
	if len(errs) == 0 {
		t.Fatal("Load() with missing config file returned no errors")
	}
}
