package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"off", zapcore.FatalLevel + 1, false},
		{"loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestHexDumpTruncates(t *testing.T) {
	data := make([]byte, maxDumpBytes+10)
	got := HexDump(data)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated dump to end with ..., got %q", got[len(got)-8:])
	}
	if len(got) != maxDumpBytes*2+3 {
		t.Errorf("expected length %d, got %d", maxDumpBytes*2+3, len(got))
	}
}

func TestASCIIDump(t *testing.T) {
	got := ASCIIDump([]byte{'h', 'c', 'i', 0x00, 0x7f})
	if got != "hci.." {
		t.Errorf("expected hci.., got %q", got)
	}
	if ASCIIDump(nil) != "" {
		t.Error("expected empty dump for nil input")
	}
}

func TestLogPacketFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	LogPacket(zap.New(core), "send", []byte{0x01, 0x03, 0x0c, 0x00})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["direction"] != "send" {
		t.Errorf("expected direction send, got %v", fields["direction"])
	}
	if fields["hex"] != "01030c00" {
		t.Errorf("expected hex 01030c00, got %v", fields["hex"])
	}
}

func TestInitializeOff(t *testing.T) {
	defer SetLogger(nil)
	if err := Initialize("off"); err != nil {
		t.Fatalf("Initialize(off) failed: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("expected no-op logger for level off")
	}
}
