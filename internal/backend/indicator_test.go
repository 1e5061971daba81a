package backend

import (
	"encoding/json"
	"testing"

	"github.com/dgnsrekt/chartdeck/internal/apperr"
)

func TestDecodeMACDRequiresAllParts(t *testing.T) {
	raw := json.RawMessage(`{"macd":[{"time":1,"value":0.1}],"signal":[{"time":1,"value":0.2}]}`)
	_, err := DecodeMACD(raw)
	if err == nil {
		t.Fatal("expected error for missing histogram")
	}
	if got, want := apperr.Code(err), apperr.CodeDataShape; got != want {
		t.Fatalf("code = %q, want %q", got, want)
	}
}

func TestDecodeMACD(t *testing.T) {
	raw := json.RawMessage(`{
		"macd":[{"time":1,"value":0.1},{"time":2,"value":0.2}],
		"signal":[{"time":1,"value":0.0},{"time":2,"value":0.1}],
		"histogram":[{"time":1,"value":0.1},{"time":2,"value":null}]
	}`)
	m, err := DecodeMACD(raw)
	if err != nil {
		t.Fatalf("DecodeMACD() error = %v", err)
	}
	if len(m.MACD) != 2 || len(m.Signal) != 2 {
		t.Fatalf("macd=%d signal=%d, want 2 each", len(m.MACD), len(m.Signal))
	}
	if got, want := len(m.Histogram), 1; got != want {
		t.Fatalf("histogram = %d points, want %d (null dropped)", got, want)
	}
}

func TestDecodeMABundle(t *testing.T) {
	raw := json.RawMessage(`{"ma5":[{"time":"2023-01-03","value":1}],"ma10":[],"ma20":[],"ma60":[]}`)
	out, err := DecodeMABundle(raw)
	if err != nil {
		t.Fatalf("DecodeMABundle() error = %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("keys = %d, want 4", len(out))
	}
	if got, want := int64(out["ma5"][0].Time), int64(1672704000); got != want {
		t.Fatalf("ma5 time = %d, want %d", got, want)
	}

	if _, err := DecodeMABundle(json.RawMessage(`{"ma5":[]}`)); err == nil {
		t.Fatal("expected error for incomplete bundle")
	}
}

func TestDecodePointsRejectsObject(t *testing.T) {
	if _, err := DecodePoints(json.RawMessage(`{"macd":[]}`)); err == nil {
		t.Fatal("expected error decoding object as series")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1672531200", 1672531200},
		{"2023-01-01", 1672531200},
		{"2023-01-01 00:00:30", 1672531230},
		{"2023-01-01T08:00:00+08:00", 1672531200},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if err != nil {
			t.Fatalf("ParseTime(%q) error = %v", tt.in, err)
		}
		if int64(got) != tt.want {
			t.Fatalf("ParseTime(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Fatal("expected error for unrecognized time")
	}
}
