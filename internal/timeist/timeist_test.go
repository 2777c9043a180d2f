package timeist

import (
	"testing"
	"time"
)

func TestZoneOffset(t *testing.T) {
	t.Parallel()

	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, Zone).Zone()
	if offset != 5*3600+30*60 {
		t.Errorf("expected IST offset 19800s, got %d", offset)
	}
}

func TestCivilRoundTrip(t *testing.T) {
	t.Parallel()

	// Converting an IST civil datetime to UTC and back must be lossless;
	// there is no DST transition in a fixed-offset zone.
	tests := []time.Time{
		time.Date(2025, 1, 1, 0, 0, 0, 0, Zone),
		time.Date(2025, 6, 15, 23, 59, 59, 0, Zone),
		time.Date(2024, 2, 29, 12, 30, 0, 0, Zone),
		time.Date(2025, 12, 31, 4, 45, 0, 0, Zone),
	}

	for _, civil := range tests {
		back := ToIST(civil.UTC())
		if !back.Equal(civil) {
			t.Errorf("round trip changed instant: %v -> %v", civil, back)
		}
		if back.Year() != civil.Year() || back.Hour() != civil.Hour() || back.Minute() != civil.Minute() {
			t.Errorf("round trip changed civil fields: %v -> %v", civil, back)
		}
	}
}

func TestFormatTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "afternoon",
			in:   time.Date(2025, 1, 18, 14, 30, 0, 0, Zone),
			want: "2:30 PM",
		},
		{
			name: "morning no leading zero",
			in:   time.Date(2025, 1, 18, 9, 0, 0, 0, Zone),
			want: "9:00 AM",
		},
		{
			name: "midnight",
			in:   time.Date(2025, 1, 18, 0, 5, 0, 0, Zone),
			want: "12:05 AM",
		},
		{
			name: "noon",
			in:   time.Date(2025, 1, 18, 12, 0, 0, 0, Zone),
			want: "12:00 PM",
		},
		{
			name: "utc input converted",
			in:   time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), // 14:30 IST
			want: "2:30 PM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatTime(tt.in); got != tt.want {
				t.Errorf("FormatTime(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatRelativeDate(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, 1, 18, 10, 0, 0, 0, Zone)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{
			name: "same civil day",
			in:   time.Date(2025, 1, 18, 16, 30, 0, 0, Zone),
			want: "Today, 4:30 PM",
		},
		{
			name: "next civil day",
			in:   time.Date(2025, 1, 19, 9, 0, 0, 0, Zone),
			want: "Tomorrow, 9:00 AM",
		},
		{
			name: "two days out",
			in:   time.Date(2025, 1, 20, 9, 0, 0, 0, Zone),
			want: "Jan 20, 9:00 AM",
		},
		{
			name: "yesterday falls through to date",
			in:   time.Date(2025, 1, 17, 9, 0, 0, 0, Zone),
			want: "Jan 17, 9:00 AM",
		},
		{
			name: "tomorrow by civil date even when under 24h away",
			in:   time.Date(2025, 1, 19, 0, 30, 0, 0, Zone),
			want: "Tomorrow, 12:30 AM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := FormatRelativeDate(tt.in, ref); got != tt.want {
				t.Errorf("FormatRelativeDate(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseClockTime_Anchored(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 18, 10, 0, 0, 0, Zone)

	tests := []struct {
		name   string
		text   string
		anchor string
		want   time.Time
	}{
		{
			name:   "morning on anchor date",
			text:   "9:00 AM",
			anchor: "2025-01-20",
			want:   time.Date(2025, 1, 20, 9, 0, 0, 0, Zone),
		},
		{
			name:   "afternoon",
			text:   "4:30 PM",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 16, 30, 0, 0, Zone),
		},
		{
			name:   "noon",
			text:   "12:00 PM",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 12, 0, 0, 0, Zone),
		},
		{
			name:   "midnight",
			text:   "12:00 AM",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 0, 0, 0, 0, Zone),
		},
		{
			name:   "no minutes",
			text:   "2 PM",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 14, 0, 0, 0, Zone),
		},
		{
			name:   "lowercase with padding",
			text:   "  8:00 am ",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 8, 0, 0, 0, Zone),
		},
		{
			name:   "anchored time in the past does not roll forward",
			text:   "8:00 AM",
			anchor: "2025-01-18",
			want:   time.Date(2025, 1, 18, 8, 0, 0, 0, Zone),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseClockTime(tt.text, tt.anchor, now)
			if err != nil {
				t.Fatalf("ParseClockTime(%q, %q): %v", tt.text, tt.anchor, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseClockTime(%q, %q) = %v, want %v", tt.text, tt.anchor, got, tt.want)
			}
		})
	}
}

func TestParseClockTime_Rollover(t *testing.T) {
	t.Parallel()

	// With no anchor, a clock time already past rolls forward exactly one
	// civil day; a future one stays on today.
	t.Run("past time rolls to tomorrow", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 1, 18, 10, 0, 0, 0, Zone)
		got, err := ParseClockTime("9:00 AM", "", now)
		if err != nil {
			t.Fatal(err)
		}
		want := time.Date(2025, 1, 19, 9, 0, 0, 0, Zone)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("future time stays today", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2025, 1, 18, 8, 0, 0, 0, Zone)
		got, err := ParseClockTime("9:00 AM", "", now)
		if err != nil {
			t.Fatal(err)
		}
		want := time.Date(2025, 1, 18, 9, 0, 0, 0, Zone)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestParseClockTime_Invalid(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 18, 10, 0, 0, 0, Zone)

	invalid := []string{
		"",
		"tomorrow",
		"25:00 PM",
		"9:75 AM",
		"0:30 AM",
		"13:00 PM",
		"9:00",
		"2025-01-18T09:00:00Z",
	}

	for _, text := range invalid {
		if _, err := ParseClockTime(text, "", now); err == nil {
			t.Errorf("ParseClockTime(%q) expected error, got none", text)
		}
	}

	if _, err := ParseClockTime("9:00 AM", "not-a-date", now); err == nil {
		t.Error("expected error for invalid anchor date")
	}
}

func TestCivilDate(t *testing.T) {
	t.Parallel()

	// 20:00 UTC on Jan 17 is already Jan 18 in IST.
	in := time.Date(2025, 1, 17, 20, 0, 0, 0, time.UTC)
	if got := CivilDate(in); got != "2025-01-18" {
		t.Errorf("CivilDate(%v) = %q, want %q", in, got, "2025-01-18")
	}
}
