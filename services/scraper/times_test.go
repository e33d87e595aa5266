package scraper

import "testing"

func TestStartTime(t *testing.T) {
	tests := []struct {
		name    string
		dayName string
		period  int
		want    string
	}{
		{"regular day period 1", "Pirmdiena", 1, "08:30:00"},
		{"regular day period 3", "Otrdiena", 3, "10:10:00"},
		{"regular day period 9", "Ceturtdiena", 9, "15:30:00"},
		{"friday period 1", "Piektdiena", 1, "08:10:00"},
		{"friday period 5", "Piektdiena", 5, "11:10:00"},
		{"friday period 9", "Piektdiena", 9, "14:30:00"},
		{"even period falls back", "Pirmdiena", 2, "08:00:00"},
		{"period outside table falls back", "Piektdiena", 11, "08:00:00"},
		{"period zero falls back", "Trešdiena", 0, "08:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StartTime(tt.dayName, tt.period); got != tt.want {
				t.Errorf("StartTime(%q, %d) = %q, want %q", tt.dayName, tt.period, got, tt.want)
			}
		})
	}
}

func TestEndTime(t *testing.T) {
	tests := []struct {
		name    string
		dayName string
		period  int
		want    string
	}{
		{"regular day period 1", "Pirmdiena", 1, "09:50:00"},
		{"regular day period 7", "Otrdiena", 7, "15:20:00"},
		{"friday period 1", "Piektdiena", 1, "09:30:00"},
		{"friday period 7", "Piektdiena", 7, "14:20:00"},
		{"fallback start plus block", "Pirmdiena", 4, "09:20:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EndTime(tt.dayName, tt.period); got != tt.want {
				t.Errorf("EndTime(%q, %d) = %q, want %q", tt.dayName, tt.period, got, tt.want)
			}
		})
	}
}

func TestAddClockMinutes(t *testing.T) {
	tests := []struct {
		name    string
		clock   string
		minutes int
		want    string
	}{
		{"plain addition", "08:30:00", 80, "09:50:00"},
		{"midnight wraparound", "23:10:00", 80, "00:30:00"},
		{"exact midnight", "22:40:00", 80, "00:00:00"},
		{"unparseable input returned as is", "late", 80, "late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addClockMinutes(tt.clock, tt.minutes); got != tt.want {
				t.Errorf("addClockMinutes(%q, %d) = %q, want %q", tt.clock, tt.minutes, got, tt.want)
			}
		})
	}
}
