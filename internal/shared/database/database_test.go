package database

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSlogWriterEmitsWarn(t *testing.T) {
	var buf bytes.Buffer
	w := slogWriter{slog.New(slog.NewJSONHandler(&buf, nil))}

	w.Printf("SLOW SQL >= %v [%.3fms] %s", "500ms", 812.5, "SELECT 1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["level"] != "WARN" || rec["msg"] != "gorm" {
		t.Fatalf("record = %v", rec)
	}
	if got := rec["detail"]; got != "SLOW SQL >= 500ms [812.500ms] SELECT 1" {
		t.Fatalf("detail = %v", got)
	}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.MaxOpenConns < o.MaxIdleConns {
		t.Fatalf("idle %d exceeds open %d", o.MaxIdleConns, o.MaxOpenConns)
	}
	if o.SlowThreshold <= 0 || o.ConnMaxLifetime <= 0 {
		t.Fatalf("options = %+v", o)
	}
}
