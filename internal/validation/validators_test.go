package validation

import (
	"testing"

	"github.com/taskping/taskping/internal/models"
)

func TestValidateTaskStatus(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"active", "snoozed", "completed"} {
		if err := ValidateTaskStatus(valid); err != nil {
			t.Errorf("ValidateTaskStatus(%q) = %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "pending", "done", "ACTIVE"} {
		if err := ValidateTaskStatus(invalid); err == nil {
			t.Errorf("ValidateTaskStatus(%q) accepted", invalid)
		}
	}
}

func TestValidateTaskType(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"meeting", "call", "deadline", "recurring", "location", "one-time"} {
		if err := ValidateTaskType(valid); err != nil {
			t.Errorf("ValidateTaskType(%q) = %v", valid, err)
		}
	}
	if err := ValidateTaskType("errand"); err == nil {
		t.Error("ValidateTaskType(\"errand\") accepted")
	}
}

func TestValidateLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		loc     *models.TaskLocation
		wantErr bool
	}{
		{"nil location", nil, false},
		{"valid", &models.TaskLocation{Name: "Office", Lat: 12.97, Lng: 77.59, RadiusMeters: 100}, false},
		{"empty name", &models.TaskLocation{Name: " ", Lat: 0, Lng: 0, RadiusMeters: 100}, true},
		{"latitude out of range", &models.TaskLocation{Name: "X", Lat: 91, Lng: 0, RadiusMeters: 100}, true},
		{"longitude out of range", &models.TaskLocation{Name: "X", Lat: 0, Lng: -181, RadiusMeters: 100}, true},
		{"radius too small", &models.TaskLocation{Name: "X", Lat: 0, Lng: 0, RadiusMeters: 5}, true},
		{"radius too large", &models.TaskLocation{Name: "X", Lat: 0, Lng: 0, RadiusMeters: 20000}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateLocation(tt.loc)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLocation() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	if got := SanitizeText("  hello\x00world  "); got != "helloworld" {
		t.Errorf("SanitizeText() = %q", got)
	}
	if got := SanitizeText("line1\nline2\ttab"); got != "line1\nline2\ttab" {
		t.Errorf("SanitizeText() stripped allowed whitespace: %q", got)
	}
}
