package app

import (
	"bytes"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("BASE_URL", "")
	t.Setenv("AUTH_SERVICE_URL", "")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_WorkerCommand_RequiresPostgresBackend(t *testing.T) {
	setTestEnv(t)
	t.Setenv("TOKEN_STORE_BACKEND", "cookie")

	var buf bytes.Buffer
	err := Run(&buf, []string{"worker"})
	if err == nil {
		t.Fatal("worker with cookie backend should return error")
	}
	if !strings.Contains(err.Error(), "TOKEN_STORE_BACKEND=postgres") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRun_MigrateCommand_RequiresDatabaseURL(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate"}); err == nil {
		t.Fatal("migrate without DATABASE_URL should return error")
	}
}

// TestRun_ServeCommand_UnreachableRedis はredisバックエンドに接続できない場合に起動しないことを検証する。
func TestRun_ServeCommand_UnreachableRedis(t *testing.T) {
	setTestEnv(t)
	t.Setenv("TOKEN_STORE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:1")

	var buf bytes.Buffer
	err := Run(&buf, []string{"serve"})
	if err == nil {
		t.Fatal("serve with unreachable redis should return error")
	}
	if !strings.Contains(err.Error(), "token store") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRun_Healthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path = %q, want /health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, port, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
			if err != nil {
				t.Fatalf("failed to parse server URL: %v", err)
			}
			t.Setenv("SERVER_PORT", port)

			err = Run(&bytes.Buffer{}, []string{"healthcheck"})
			if (err != nil) != tt.wantErr {
				t.Errorf("Run(healthcheck) error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BASE_URL", "http://localhost:8080")
	t.Setenv("AUTH_SERVICE_URL", "http://localhost:9000")
	t.Setenv("TOKEN_STORE_BACKEND", "cookie")
	t.Setenv("LOG_LEVEL", "")
}
