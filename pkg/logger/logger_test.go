package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithActorID(ctx, "actor-1")
	ctx = logg.WithWarehouseID(ctx, "wh-1")
	logg.Info(ctx, "hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{
		"service":      "test",
		"request_id":   "req-1",
		"actor_id":     "actor-1",
		"warehouse_id": "wh-1",
		"message":      "hello",
	} {
		if entry[key] != want {
			t.Fatalf("field %s = %v, want %s", key, entry[key], want)
		}
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	logg.Error(context.Background(), "boom", errors.New("bad"))

	if !strings.Contains(buf.String(), "stack") {
		t.Fatal("error log should carry a stack trace")
	}
	if !strings.Contains(buf.String(), "bad") {
		t.Fatal("error log should carry the error")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("debug parsed as %v", got)
	}
	if got := ParseLevel(" WARN "); got != zerolog.WarnLevel {
		t.Fatalf("warn parsed as %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("fallback level = %v", got)
	}
}
