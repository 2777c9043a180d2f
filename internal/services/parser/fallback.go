package parser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskping/taskping/internal/models"
)

// FallbackParser tries the primary provider and falls back to the
// secondary when it fails. Parse quality degrades but task capture never
// depends on the API being up.
type FallbackParser struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

var _ Provider = (*FallbackParser)(nil)

func NewFallbackParser(primary, secondary Provider, logger *zap.Logger) *FallbackParser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackParser{primary: primary, secondary: secondary, logger: logger}
}

func (p *FallbackParser) ParseTask(ctx context.Context, input string, now time.Time) (*models.ParsedTask, error) {
	if p.primary != nil {
		parsed, err := p.primary.ParseTask(ctx, input, now)
		if err == nil {
			return parsed, nil
		}
		p.logger.Warn("primary_parse_failed_falling_back",
			zap.Bool("rate_limited", IsRateLimitError(err)),
			zap.Bool("quota_exceeded", IsQuotaError(err)),
			zap.Error(err))
	}
	return p.secondary.ParseTask(ctx, input, now)
}
