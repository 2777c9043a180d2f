package database

import (
	"testing"

	"github.com/google/uuid"

	"github.com/taskping/taskping/internal/models"
)

// Note: full repository coverage requires a database; these tests cover
// the column encoding the repositories share.
func TestEncodeTaskColumns(t *testing.T) {
	t.Parallel()

	task := &models.Task{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Title:  "Pay rent",
		Status: models.TaskStatusActive,
	}

	reminders, location, err := encodeTaskColumns(task)
	if err != nil {
		t.Fatalf("encodeTaskColumns: %v", err)
	}
	if string(reminders) != "[]" {
		t.Errorf("nil reminder times encoded as %q, want empty array", reminders)
	}
	if location != nil {
		t.Errorf("nil location encoded as %q, want nil", location)
	}

	task.ReminderTimes = []string{"2025-01-01T09:00:00Z"}
	task.Location = &models.TaskLocation{Name: "Office", Lat: 12.97, Lng: 77.59, RadiusMeters: 100}
	reminders, location, err = encodeTaskColumns(task)
	if err != nil {
		t.Fatalf("encodeTaskColumns: %v", err)
	}
	if string(reminders) != `["2025-01-01T09:00:00Z"]` {
		t.Errorf("reminders = %s", reminders)
	}
	if len(location) == 0 {
		t.Error("expected location JSON")
	}
}
