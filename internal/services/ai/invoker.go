package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrAllModelsExhausted is returned when every candidate failed
	ErrAllModelsExhausted = errors.New("all models failed to respond")
	// ErrNotConfigured is returned when no candidate model is configured
	ErrNotConfigured = errors.New("no generative model configured: GEMINI_API_KEY is missing")
	// ErrEmptyReply marks a candidate that answered with blank text
	ErrEmptyReply = errors.New("model returned an empty reply")
)

// Candidate is one generative model that can be asked for a reply
type Candidate interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Recorder receives one observation per model attempt
type Recorder interface {
	RecordAIRequest(model, status string, duration time.Duration)
}

// Reply is the generated text and the model that produced it
type Reply struct {
	Text  string
	Model string
}

// ExhaustedError reports that no candidate produced text. It matches
// ErrAllModelsExhausted and the last candidate's error.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return ErrAllModelsExhausted.Error()
	}
	return fmt.Sprintf("%s after %d attempts: %v", ErrAllModelsExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrAllModelsExhausted}
	}
	return []error{ErrAllModelsExhausted, e.Last}
}

// Invoker tries candidates in order until one returns non-empty text
type Invoker struct {
	candidates []Candidate
	timeout    time.Duration
	recorder   Recorder
	logger     *logrus.Logger
}

// NewInvoker creates a fallback invoker. The recorder may be nil.
func NewInvoker(candidates []Candidate, timeout time.Duration, recorder Recorder, logger *logrus.Logger) *Invoker {
	logger.WithField("candidateCount", len(candidates)).Info("AI invoker initialized")

	return &Invoker{
		candidates: append([]Candidate(nil), candidates...),
		timeout:    timeout,
		recorder:   recorder,
		logger:     logger,
	}
}

// Candidates returns the configured model names in order
func (inv *Invoker) Candidates() []string {
	names := make([]string, len(inv.candidates))
	for i, candidate := range inv.candidates {
		names[i] = candidate.Name()
	}
	return names
}

// GenerateReply asks each candidate once, in order, and returns the first
// non-empty reply.
func (inv *Invoker) GenerateReply(ctx context.Context, prompt string) (Reply, error) {
	if len(inv.candidates) == 0 {
		return Reply{}, ErrNotConfigured
	}

	var lastErr error
	attempt := 0
	for _, candidate := range inv.candidates {
		attempt++
		text, err := inv.attempt(ctx, candidate, prompt)
		if err == nil {
			inv.logger.WithFields(logrus.Fields{
				"model":   candidate.Name(),
				"attempt": attempt,
			}).Info("AI reply generated")
			return Reply{Text: text, Model: candidate.Name()}, nil
		}

		lastErr = err
		inv.logger.WithFields(logrus.Fields{
			"model":   candidate.Name(),
			"attempt": attempt,
			"error":   err.Error(),
		}).Warn("AI model failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}

	return Reply{}, &ExhaustedError{Attempts: attempt, Last: lastErr}
}

// attempt makes exactly one call, bounded by the per-model timeout
func (inv *Invoker) attempt(ctx context.Context, candidate Candidate, prompt string) (string, error) {
	callCtx := ctx
	if inv.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := candidate.Generate(callCtx, prompt)
	text = strings.TrimSpace(text)
	if err == nil && text == "" {
		err = ErrEmptyReply
	}

	status := "success"
	switch {
	case errors.Is(err, ErrEmptyReply):
		status = "empty"
	case err != nil:
		status = "error"
	}
	if inv.recorder != nil {
		inv.recorder.RecordAIRequest(candidate.Name(), status, time.Since(start))
	}

	if err != nil {
		return "", fmt.Errorf("%s: %w", candidate.Name(), err)
	}
	return text, nil
}
