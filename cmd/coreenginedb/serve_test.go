package main

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/raakeshmj/coreenginedb/internal/auth"
	"github.com/raakeshmj/coreenginedb/internal/config"
)

func TestStartupWarnings(t *testing.T) {
	got := startupWarnings(&config.Config{})
	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %v", got)
	}
	if !strings.Contains(got[0], "session logins and /admin/superadmin are disabled") {
		t.Errorf("admin token warning = %q", got[0])
	}

	// Without a secret no session can be issued, which is what the warning says.
	if _, err := auth.NewSessionManager("", time.Hour).Issue("alice", auth.RoleUser); err == nil {
		t.Error("Issue with an empty secret should fail")
	}

	if got := startupWarnings(&config.Config{AdminToken: "t", StripeSecret: "sk"}); len(got) != 0 {
		t.Errorf("unexpected warnings %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "warning": slog.LevelWarn,
		"error": slog.LevelError, "": slog.LevelInfo, "bogus": slog.LevelInfo,
	} {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
