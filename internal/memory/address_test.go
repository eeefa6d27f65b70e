package memory

import "testing"

func TestParseAddress(t *testing.T) {
	tests := []struct {
		input   string
		want    uint32
		wantErr bool
	}{
		{"0x204ba8", 0x204ba8, false},
		{"0X10", 0x10, false},
		{"$ff", 0xff, false},
		{"#256", 256, false},
		{"200000", 0x200000, false},
		{"  0x1  ", 1, false},
		{"", 0, true},
		{"0xzz", 0, true},
		{"0x100000000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAddress(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseAddress(%q) = 0x%x, want 0x%x", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLength(t *testing.T) {
	tests := []struct {
		input string
		want  uint32
	}{
		{"16", 16},
		{"0x10", 16},
		{"$10", 16},
		{"#16", 16},
	}
	for _, tt := range tests {
		got, err := ParseLength(tt.input)
		if err != nil {
			t.Fatalf("ParseLength(%q) failed: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseLength(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
	if _, err := ParseLength("ten"); err == nil {
		t.Error("expected error for non-numeric length")
	}
}
