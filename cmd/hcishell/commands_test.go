package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/muurk/hcishell/internal/config"
	"github.com/muurk/hcishell/internal/tracefile"
)

func TestDumpFrames(t *testing.T) {
	var file bytes.Buffer
	w, err := tracefile.NewWriter(&file)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	frames := []tracefile.Frame{
		{Direction: tracefile.Send, Payload: []byte{0x01, 0x03, 0x0c, 0x00}},
		{Direction: tracefile.Recv, Payload: []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}},
	}
	for _, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame() error = %v", err)
		}
	}

	r, err := tracefile.NewReader(bytes.NewReader(file.Bytes()))
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	var out bytes.Buffer
	if err := dumpFrames(&out, r, false); err != nil {
		t.Fatalf("dumpFrames() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"1 send command 0x0c03",
		"2 recv command complete 0x0c03 status 0x00 (success)",
		"2 frames",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("dump missing %q:\n%s", want, got)
		}
	}
}

func TestDumpFramesTruncated(t *testing.T) {
	var file bytes.Buffer
	w, err := tracefile.NewWriter(&file)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFrame(tracefile.Frame{Direction: tracefile.Send, Payload: []byte{0x01, 0x03, 0x0c, 0x00}}); err != nil {
		t.Fatal(err)
	}
	data := file.Bytes()[:file.Len()-2]

	r, err := tracefile.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := dumpFrames(&out, r, true); err == nil {
		t.Error("dumpFrames() on a truncated file should fail")
	}
	if !strings.Contains(out.String(), "0 frames read") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestHookSummary(t *testing.T) {
	tests := []struct {
		opts config.Options
		want string
	}{
		{config.Options{}, "none"},
		{config.Options{Trace: true, Save: "a.trace"}, "trace, save a.trace"},
		{config.Options{Replay: "b.trace", StrictReplay: true}, "replay b.trace (strict)"},
	}
	for _, tt := range tests {
		if got := hookSummary(&tt.opts); got != tt.want {
			t.Errorf("hookSummary() = %q, want %q", got, tt.want)
		}
	}
}
