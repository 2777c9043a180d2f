package parser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/taskping/taskping/internal/models"
)

var (
	clockPattern   = regexp.MustCompile(`(?i)(\d{1,2}(?::\d{2})?\s*(?:am|pm))`)
	datePattern    = regexp.MustCompile(`(?i)(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*)`)
	titleSeparator = regexp.MustCompile(`(?i)(?:notify|remind|at \d)`)
)

// HeuristicParser extracts tasks by pattern matching alone. It backs up
// the OpenAI parser so task capture keeps working when the API is down
// or rate limited.
type HeuristicParser struct{}

var _ Provider = (*HeuristicParser)(nil)

func NewHeuristicParser() *HeuristicParser {
	return &HeuristicParser{}
}

// ParseTask extracts a structured task draft without calling any API.
func (p *HeuristicParser) ParseTask(_ context.Context, input string, now time.Time) (*models.ParsedTask, error) {
	lower := strings.ToLower(input)

	taskType := models.TaskTypeOneTime
	switch {
	case strings.Contains(lower, "when i reach"),
		strings.Contains(lower, "when i visit"),
		strings.Contains(lower, "when i arrive"):
		taskType = models.TaskTypeLocation
	case strings.Contains(lower, "daily"), strings.Contains(lower, "every day"):
		taskType = models.TaskTypeRecurring
	case strings.Contains(lower, "call"):
		taskType = models.TaskTypeCall
	case strings.Contains(lower, "meeting"):
		taskType = models.TaskTypeMeeting
	case strings.Contains(lower, "till"),
		strings.Contains(lower, "deadline"),
		strings.Contains(lower, "by "):
		taskType = models.TaskTypeDeadline
	}

	var reminderTimes []string
	if times := clockPattern.FindAllString(input, -1); times != nil {
		for _, t := range times {
			reminderTimes = append(reminderTimes, strings.TrimSpace(t))
		}
	}

	title := input
	if parts := titleSeparator.Split(input, 2); len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		title = strings.TrimSpace(parts[0])
	}

	parsed := &models.ParsedTask{
		Title:         title,
		TaskType:      taskType,
		ReminderTimes: reminderTimes,
	}

	if dates := datePattern.FindAllString(input, -1); dates != nil {
		endDate := dates[0]
		parsed.EndDate = &endDate
	}
	if taskType == models.TaskTypeRecurring {
		rule := "daily"
		parsed.RepeatRule = &rule
	}
	if taskType == models.TaskTypeLocation {
		parsed.IsLocationTask = true
		parsed.LocationName = extractLocationName(input)
	}

	Normalize(parsed, now)
	return parsed, nil
}

var locationTrigger = regexp.MustCompile(`(?i)when i (?:reach|visit|arrive at|arrive)\s+(.+?)(?:[.,]|$)`)

func extractLocationName(input string) string {
	if m := locationTrigger.FindStringSubmatch(input); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return ""
}
