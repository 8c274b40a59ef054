package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"taskgen/internal/jsonfix"
	"taskgen/internal/llm"
	"taskgen/internal/model"
)

// Completer is the single LLM operation the generator needs.
type Completer interface {
	Complete(ctx context.Context, system, user string, opts llm.Options) (string, error)
}

// PromptBuilder renders the prompts for generation and improvement.
type PromptBuilder interface {
	System(req model.GenerationRequest) (string, error)
	Task(req model.GenerationRequest) (string, error)
	Improve(t *model.Task) (system, user string, err error)
}

// Config holds the generator defaults. Zero fields take the package
// defaults.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
	MaxAttempts int
}

// Defaults for a local Ollama setup.
const (
	DefaultModel       = "llama3.1:8b"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultMaxAttempts = 3
)

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	return c
}

// Generator turns generation requests into usable tasks. It retries
// failed attempts up to the configured limit and falls back to a canned
// task rather than fail, so Generate never returns an error.
type Generator struct {
	llm     Completer
	prompts PromptBuilder
	cfg     Config
}

// NewGenerator wires a generator from its collaborators.
func NewGenerator(c Completer, p PromptBuilder, cfg Config) *Generator {
	return &Generator{llm: c, prompts: p, cfg: cfg.withDefaults()}
}

// Generate runs the attempt loop for one request. Transport failures
// and unrecoverable output retry until the attempt budget runs out,
// then the deterministic fallback takes over. A task whose only
// problems are schema issues on the final attempt is accepted with
// warnings instead of discarded.
func (g *Generator) Generate(ctx context.Context, req model.GenerationRequest) model.Outcome {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		task, res, err := g.attempt(ctx, req)
		if err != nil {
			lastErr = err
			slog.Warn("generation attempt failed",
				"topic", req.Topic, "attempt", attempt, "error", err)
			continue
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		if res.IsValid() {
			status := model.OutcomeAccepted
			if len(res.Warnings) > 0 {
				status = model.OutcomeAcceptedWithWarnings
			}
			slog.Info("task generated",
				"topic", req.Topic, "attempt", attempt,
				"warnings", len(res.Warnings), "elapsed", elapsed)
			return model.Outcome{
				Status:   status,
				Task:     task,
				Warnings: res.Warnings,
				Attempts: attempt,
			}
		}

		if attempt == g.cfg.MaxAttempts {
			slog.Warn("accepting task with schema issues on final attempt",
				"topic", req.Topic, "issues", res.Issues)
			return model.Outcome{
				Status:   model.OutcomeAcceptedWithWarnings,
				Task:     task,
				Issues:   res.Issues,
				Warnings: res.Warnings,
				Attempts: attempt,
			}
		}
		slog.Warn("generated task failed validation, retrying",
			"topic", req.Topic, "attempt", attempt, "issues", res.Issues)
	}

	slog.Warn("generation exhausted, using fallback task",
		"topic", req.Topic, "attempts", g.cfg.MaxAttempts, "error", lastErr)
	return model.Outcome{
		Status:   model.OutcomeFallback,
		Task:     Fallback(req),
		Attempts: g.cfg.MaxAttempts,
	}
}

// Improve asks the model to rework an existing task. The same attempt
// loop applies; when it runs out the original task comes back unchanged
// rather than a canned fallback.
func (g *Generator) Improve(ctx context.Context, orig *model.Task) model.Outcome {
	system, user, err := g.prompts.Improve(orig)
	if err != nil {
		slog.Warn("improve prompt failed, keeping original task", "task_id", orig.TaskID, "error", err)
		return model.Outcome{Status: model.OutcomeFallback, Task: orig}
	}

	req := model.GenerationRequest{
		Topic:      orig.Topic,
		TextType:   orig.TextType,
		Difficulty: orig.Difficulty,
	}
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		raw, err := g.llm.Complete(ctx, system, user, g.callOptions(req))
		if err != nil {
			slog.Warn("improve attempt failed", "task_id", orig.TaskID, "attempt", attempt, "error", err)
			continue
		}
		task, res, err := g.decode(raw, req)
		if err != nil {
			slog.Warn("improve output unrecoverable", "task_id", orig.TaskID, "attempt", attempt, "error", err)
			continue
		}
		task.TaskID = orig.TaskID
		if res.IsValid() {
			status := model.OutcomeAccepted
			if len(res.Warnings) > 0 {
				status = model.OutcomeAcceptedWithWarnings
			}
			return model.Outcome{Status: status, Task: task, Warnings: res.Warnings, Attempts: attempt}
		}
		slog.Warn("improved task failed validation, retrying",
			"task_id", orig.TaskID, "attempt", attempt, "issues", res.Issues)
	}

	slog.Warn("improve exhausted, keeping original task", "task_id", orig.TaskID)
	return model.Outcome{Status: model.OutcomeFallback, Task: orig, Attempts: g.cfg.MaxAttempts}
}

func (g *Generator) attempt(ctx context.Context, req model.GenerationRequest) (*model.Task, model.ValidationResult, error) {
	system, err := g.prompts.System(req)
	if err != nil {
		return nil, model.ValidationResult{}, err
	}
	user, err := g.prompts.Task(req)
	if err != nil {
		return nil, model.ValidationResult{}, err
	}

	raw, err := g.llm.Complete(ctx, system, user, g.callOptions(req))
	if err != nil {
		return nil, model.ValidationResult{}, err
	}
	return g.decode(raw, req)
}

// decode recovers a task document from raw model output and normalizes
// it before validation.
func (g *Generator) decode(raw string, req model.GenerationRequest) (*model.Task, model.ValidationResult, error) {
	var task model.Task
	if err := jsonfix.Unmarshal(raw, &task); err != nil {
		return nil, model.ValidationResult{}, fmt.Errorf("recover task JSON: %w", err)
	}
	g.finalize(&task, req)
	return &task, Validate(&task), nil
}

// finalize fills the provenance and request-derived fields the model is
// not trusted to set, and renumbers questions 1-based.
func (g *Generator) finalize(t *model.Task, req model.GenerationRequest) {
	if t.Topic == "" {
		t.Topic = req.Topic
	}
	if t.TextType == "" {
		t.TextType = req.TextType
	}
	if t.Difficulty == "" {
		if req.Difficulty != "" {
			t.Difficulty = req.Difficulty
		} else {
			t.Difficulty = model.DefaultDifficulty
		}
	}
	for i := range t.Questions {
		t.Questions[i].Number = i + 1
	}
	t.GeneratedBy = model.GeneratedByOllama
	t.Model = g.modelFor(req)
	t.TopicCategory = CategorizeTopic(t.Topic)
}

func (g *Generator) modelFor(req model.GenerationRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return g.cfg.Model
}

func (g *Generator) callOptions(req model.GenerationRequest) llm.Options {
	opts := llm.Options{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	}
	if req.Model != "" {
		opts.Model = req.Model
	}
	if req.Temperature != 0 {
		opts.Temperature = req.Temperature
	}
	if req.MaxTokens != 0 {
		opts.MaxTokens = req.MaxTokens
	}
	return opts
}
