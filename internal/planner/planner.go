package planner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"advisor/internal/domain"
)

// Strategy selects how weekly plans are composed.
type Strategy string

const (
	// StrategyTemplate expands a deterministic 7-day schedule.
	StrategyTemplate Strategy = "template"
	// StrategyGenerative delegates composition to the language model.
	StrategyGenerative Strategy = "generative"
)

// WeekError is the sentinel week identifier returned when composition
// fails; the plan text then carries the user-facing explanation.
const WeekError = "error"

const unclearRequest = "Your request is not clear. Please say which subject the weekly schedule is for, e.g. \"weekly schedule for biology\"."

// Config configures the composer.
type Config struct {
	Strategy   Strategy
	Triggers   []string
	StudyBlock string
}

// Composer produces weekly study plans from free-text requests.
// Compose never lets an internal error escape: the returned text and
// week are always usable, and err only reports the contained cause.
type Composer struct {
	strategy   Strategy
	triggers   []string
	studyBlock string
	gen        domain.Generator
	log        *zap.Logger
}

// DefaultTriggers are the scheduling phrases recognized out of the box.
func DefaultTriggers() []string {
	return []string{"weekly plan", "weekly schedule", "weekly program", "plan my week"}
}

// New creates a Composer. gen may be nil for the template strategy.
func New(cfg Config, gen domain.Generator, log *zap.Logger) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = StrategyTemplate
	}
	triggers := cfg.Triggers
	if len(triggers) == 0 {
		triggers = DefaultTriggers()
	}
	block := cfg.StudyBlock
	if block == "" {
		block = "09:00-12:00"
	}
	return &Composer{
		strategy:   strategy,
		triggers:   triggers,
		studyBlock: block,
		gen:        gen,
		log:        log,
	}
}

// Compose builds a weekly plan for the request. The week identifier is
// the ISO calendar week of now, except for the documented generative
// fallback when now is the zero time.
func (c *Composer) Compose(ctx context.Context, request string, now time.Time) (string, string, error) {
	switch c.strategy {
	case StrategyGenerative:
		return c.composeGenerative(ctx, request, now)
	default:
		return c.composeTemplate(request, now)
	}
}

func (c *Composer) composeTemplate(request string, now time.Time) (string, string, error) {
	subject := c.extractSubject(request)
	if subject == "" {
		return unclearRequest, WeekError, fmt.Errorf("%w: no subject in request", domain.ErrCompositionFailed)
	}
	week := isoWeek(now)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Weekly schedule for %s (week %s)\n", subject, week)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i)
		fmt.Fprintf(&sb, "%s: %s, %s\n", day.Weekday(), subject, c.studyBlock)
	}
	return sb.String(), week, nil
}

func (c *Composer) composeGenerative(ctx context.Context, request string, now time.Time) (string, string, error) {
	if c.gen == nil {
		return "Sorry, the weekly plan could not be generated right now. Please try again.",
			WeekError,
			fmt.Errorf("%w: no generator configured", domain.ErrCompositionFailed)
	}
	week := ""
	if now.IsZero() {
		// Documented low-quality fallback when no clock is supplied;
		// prefixed so it cannot be mistaken for a calendar week.
		week = "req-" + strconv.Itoa(len(request)%10)
	} else {
		week = isoWeek(now)
	}
	prompt := fmt.Sprintf(
		"Create a 7-day study schedule for calendar week %s based on this request: %s\nList each day on its own line with one study block per day.\nSchedule:",
		week, request)

	text, err := c.gen.Generate(ctx, prompt, domain.GenerateOptions{MaxNewTokens: 300, Sample: true, Temperature: 0.7})
	if err != nil {
		c.log.Warn("generative plan failed", zap.Error(err))
		return "Sorry, the weekly plan could not be generated right now. Please try again.",
			WeekError,
			fmt.Errorf("%w: %v", domain.ErrCompositionFailed, err)
	}
	return text, week, nil
}

// extractSubject returns the text following the first recognized
// trigger phrase, cleaned of filler words and punctuation.
func (c *Composer) extractSubject(request string) string {
	lower := strings.ToLower(request)
	for _, trigger := range c.triggers {
		idx := strings.Index(lower, strings.ToLower(trigger))
		if idx < 0 {
			continue
		}
		rest := request[idx+len(trigger):]
		rest = strings.TrimSpace(rest)
		for _, filler := range []string{"for ", "of ", "about ", "on "} {
			if strings.HasPrefix(strings.ToLower(rest), filler) {
				rest = rest[len(filler):]
				break
			}
		}
		rest = strings.TrimSpace(strings.Trim(rest, ".!?,"))
		if rest != "" {
			return rest
		}
	}
	return ""
}

func isoWeek(now time.Time) string {
	_, week := now.ISOWeek()
	return strconv.Itoa(week)
}
