package relayboard

import "testing"

func TestChannel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"relay4", 4, false},
		{"relay6", 6, false},
		{"relay12", 12, false},
		{"relay", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := Channel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Channel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("Channel(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Channel(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
