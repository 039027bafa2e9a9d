package app

import (
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Command
	}{
		{"引数なしはserve", []string{}, CommandServe},
		{"nilもserve", nil, CommandServe},
		{"serve", []string{"serve"}, CommandServe},
		{"worker", []string{"worker"}, CommandWorker},
		{"migrate", []string{"migrate"}, CommandMigrate},
		{"healthcheck", []string{"healthcheck"}, CommandHealthcheck},
		{"2番目以降の引数は無視", []string{"worker", "--flag", "value"}, CommandWorker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestParseCommand_UnknownReturnsError(t *testing.T) {
	for _, arg := range []string{"wroker", "Serve", "--help", ""} {
		t.Run(arg, func(t *testing.T) {
			_, err := ParseCommand([]string{arg})
			if err == nil {
				t.Fatalf("expected error for %q", arg)
			}
			if !strings.Contains(err.Error(), "available: serve, worker, migrate, healthcheck") {
				t.Errorf("error should list available commands, got: %v", err)
			}
		})
	}
}

func TestRun_UnknownCommand_FailsBeforeInit(t *testing.T) {
	// 必須の環境変数がなくても、設定読み込みより先にコマンドのエラーになること
	t.Setenv("BASE_URL", "")
	t.Setenv("AUTH_SERVICE_URL", "")

	var buf strings.Builder
	err := Run(&buf, []string{"wroker"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `unknown command "wroker"`) {
		t.Errorf("unexpected error: %v", err)
	}
}
