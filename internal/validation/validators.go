package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/taskping/taskping/internal/models"
)

const (
	// MinGeofenceRadiusMeters bounds how tight a fence can be; below GPS
	// accuracy a fence would never reliably trigger.
	MinGeofenceRadiusMeters = 20
	// MaxGeofenceRadiusMeters bounds how wide a fence can be.
	MaxGeofenceRadiusMeters = 10000
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	// These should never fail in normal operation, but log if they do
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_priority", validateTaskPriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_type", validateTaskType); err != nil {
		panic(fmt.Sprintf("failed to register task_type validator: %v", err))
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	return ValidateTaskStatus(fl.Field().String()) == nil
}

// validateTaskPriority validates that a string is a valid TaskPriority enum value
func validateTaskPriority(fl validator.FieldLevel) bool {
	return ValidateTaskPriority(fl.Field().String()) == nil
}

// validateTaskType validates that a string is a valid TaskType enum value
func validateTaskType(fl validator.FieldLevel) bool {
	return ValidateTaskType(fl.Field().String()) == nil
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	switch models.TaskStatus(value) {
	case models.TaskStatusActive, models.TaskStatusSnoozed, models.TaskStatusCompleted:
		return nil
	default:
		return fmt.Errorf("invalid status: %s (must be 'active', 'snoozed', or 'completed')", value)
	}
}

// ValidateTaskPriority validates a TaskPriority string value
func ValidateTaskPriority(value string) error {
	switch models.TaskPriority(value) {
	case models.TaskPriorityLow, models.TaskPriorityMedium, models.TaskPriorityHigh, models.TaskPriorityUrgent:
		return nil
	default:
		return fmt.Errorf("invalid priority: %s (must be 'low', 'medium', 'high', or 'urgent')", value)
	}
}

// ValidateTaskType validates a TaskType string value
func ValidateTaskType(value string) error {
	switch models.TaskType(value) {
	case models.TaskTypeMeeting, models.TaskTypeCall, models.TaskTypeDeadline,
		models.TaskTypeRecurring, models.TaskTypeLocation, models.TaskTypeOneTime:
		return nil
	default:
		return fmt.Errorf("invalid task_type: %s", value)
	}
}

// ValidateLocation validates a geofence definition.
func ValidateLocation(loc *models.TaskLocation) error {
	if loc == nil {
		return nil
	}
	if strings.TrimSpace(loc.Name) == "" {
		return fmt.Errorf("location name is required")
	}
	if loc.Lat < -90 || loc.Lat > 90 {
		return fmt.Errorf("invalid latitude: %f", loc.Lat)
	}
	if loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("invalid longitude: %f", loc.Lng)
	}
	if loc.RadiusMeters < MinGeofenceRadiusMeters || loc.RadiusMeters > MaxGeofenceRadiusMeters {
		return fmt.Errorf("invalid radius: %f (must be between %d and %d meters)",
			loc.RadiusMeters, MinGeofenceRadiusMeters, MaxGeofenceRadiusMeters)
	}
	return nil
}
