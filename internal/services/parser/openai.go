package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
	"github.com/taskping/taskping/internal/timeist"
)

const (
	// DefaultOpenAIModel is the default model to use
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the default OpenAI API base URL
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// OpenAIParser implements the Provider interface using OpenAI's API
type OpenAIParser struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

var _ Provider = (*OpenAIParser)(nil)

// NewOpenAIParser creates a new OpenAI parser
func NewOpenAIParser(apiKey string, model string) *OpenAIParser {
	return NewOpenAIParserWithLogger(apiKey, DefaultOpenAIBaseURL, model, nil, false)
}

// NewOpenAIParserWithLogger creates a new OpenAI parser with logger support
func NewOpenAIParserWithLogger(apiKey string, baseURL string, model string, logger *zap.Logger, debugMode bool) *OpenAIParser {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIParser{
		client:    client,
		model:     model,
		logger:    logger,
		debugMode: debugMode,
	}
}

// ParseTask extracts a structured task draft from natural-language input.
func (p *OpenAIParser) ParseTask(ctx context.Context, input string, now time.Time) (*models.ParsedTask, error) {
	prompt := buildParsePrompt(now)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt),
		openai.UserMessage(input),
	}
	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", "parse_task"),
			zap.String("model", p.model),
			zap.Int("input_length", len(input)),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)
	if err != nil {
		if p.logger != nil && p.debugMode {
			p.logger.Debug("llm_api_error",
				zap.String("operation", "parse_task"),
				zap.String("model", p.model),
				zap.Error(err),
				zap.Duration("latency_ms", latency),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return nil, fmt.Errorf("failed to parse task: %w", apiErr)
		}
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.logger != nil && p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", "parse_task"),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	parsed, err := decodeParsedTask(content)
	if err != nil {
		return nil, err
	}
	Normalize(parsed, now)
	return parsed, nil
}

// decodeParsedTask parses the model output, tolerating prose around the
// JSON body.
func decodeParsedTask(content string) (*models.ParsedTask, error) {
	parsed := &models.ParsedTask{}
	raw := content
	if err := json.Unmarshal([]byte(raw), parsed); err != nil {
		if len(raw) > 0 && raw[0] != '{' {
			start := bytes.Index([]byte(raw), []byte("{"))
			end := bytes.LastIndex([]byte(raw), []byte("}"))
			if start != -1 && end != -1 && end > start {
				raw = raw[start : end+1]
			}
		}
		if err := json.Unmarshal([]byte(raw), parsed); err != nil {
			return nil, fmt.Errorf("failed to parse extraction response: %w", err)
		}
	}
	if strings.TrimSpace(parsed.Title) == "" {
		return nil, errors.New("extraction response has no task title")
	}
	return parsed, nil
}

func buildParsePrompt(now time.Time) string {
	istNow := timeist.ToIST(now)
	today := timeist.CivilDate(now)
	tomorrow := timeist.CivilDate(now.Add(24 * time.Hour))
	nextWeek := timeist.CivilDate(now.Add(7 * 24 * time.Hour))

	var b strings.Builder
	fmt.Fprintf(&b, "You are a task parsing assistant. Today's date is %s, tomorrow is %s, and next week starts %s. Current hour in IST is %d:00. All dates are in Indian Standard Time (IST). Extract structured task information from natural language input and respond with valid JSON only.\n\n", today, tomorrow, nextWeek, istNow.Hour())
	b.WriteString(`SMART TIME DEFAULTS (use these when specific time not mentioned):
- "morning" -> "9:00 AM"
- "afternoon" -> "2:00 PM"
- "evening" -> "6:00 PM"
- "night" or "tonight" -> "9:00 PM"
- "lunch" or "lunchtime" -> "1:00 PM"
- "end of day" or "EOD" -> "6:00 PM"
- No time specified: "10:00 AM" for meetings/calls, "6:00 PM" for deadlines, "9:00 AM" otherwise

TASK TYPE DETECTION:
- 'call' for phone calls, 'meeting' for meetings and appointments
- 'deadline' for due dates, submissions, payments
- 'recurring' for daily/weekly/monthly tasks
- 'location' for location-based reminders ("when I reach", "when I visit", "when I arrive at")
- 'one-time' for everything else

Respond with a JSON object with these fields:
task_title (string, clean title without date/time/location trigger words),
task_type (string), priority (low|medium|high|urgent, default medium),
start_date (YYYY-MM-DD, required when any date is mentioned),
end_date (YYYY-MM-DD or omitted),
reminder_times (array of times like "9:00 AM"; empty for location tasks),
repeat_rule (daily|weekly|monthly, only for recurring tasks),
is_location_task (boolean), location_name (string, for location tasks).`)
	return b.String()
}

// Normalize applies the post-extraction defaults: location tasks carry no
// reminder times, everything else gets at least one, dates and priority
// fall back to defaults, and clock strings become RFC 3339 instants
// anchored on the start date.
func Normalize(parsed *models.ParsedTask, now time.Time) {
	if parsed.TaskType == models.TaskTypeLocation || parsed.IsLocationTask {
		parsed.IsLocationTask = true
		parsed.TaskType = models.TaskTypeLocation
		parsed.ReminderTimes = []string{}
	} else if len(parsed.ReminderTimes) == 0 {
		parsed.ReminderTimes = []string{"9:00 AM"}
	}

	if parsed.StartDate == nil || *parsed.StartDate == "" {
		today := timeist.CivilDate(now)
		parsed.StartDate = &today
	}
	if parsed.Priority == "" {
		parsed.Priority = models.TaskPriorityMedium
	}

	anchor := ""
	if parsed.StartDate != nil {
		anchor = *parsed.StartDate
	}
	converted := make([]string, 0, len(parsed.ReminderTimes))
	for _, entry := range parsed.ReminderTimes {
		if strings.Contains(entry, "T") {
			converted = append(converted, entry)
			continue
		}
		if t, err := timeist.ParseClockTime(entry, anchor, now); err == nil {
			converted = append(converted, t.Format(time.RFC3339))
			continue
		}
		converted = append(converted, entry)
	}
	parsed.ReminderTimes = converted
}
