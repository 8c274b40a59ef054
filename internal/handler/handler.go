// Package handler exposes the generation pipeline and task library
// over a JSON HTTP API.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"taskgen/internal/model"
	"taskgen/internal/store"
	"taskgen/internal/task"
)

// Generator runs the generation pipeline. Satisfied by *task.Generator.
type Generator interface {
	Generate(ctx context.Context, req model.GenerationRequest) model.Outcome
	Improve(ctx context.Context, orig *model.Task) model.Outcome
}

// Pinger checks the LLM endpoint. Satisfied by *llm.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	gen   Generator
	llm   Pinger
}

// New creates a new Handler.
func New(s *store.Store, g Generator, p Pinger) *Handler {
	return &Handler{store: s, gen: g, llm: p}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/texttypes", h.handleTextTypes)
	r.Post("/api/generate", h.handleGenerate)
	r.Get("/api/tasks", h.handleListTasks)
	r.Get("/api/tasks/{taskID}", h.handleGetTask)
	r.Post("/api/tasks/{taskID}/improve", h.handleImprove)
	r.Post("/api/batches", h.handleCreateBatch)
	r.Get("/api/batches", h.handleListBatches)
	r.Get("/api/batches/latest", h.handleLatestBatch)
	r.Get("/api/batches/{batchID}", h.handleGetBatch)
	r.Get("/api/export", h.handleExport)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.llm.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"llm":    err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleTextTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.TextTypes())
}

type generateRequest struct {
	Topic              string  `json:"topic"`
	TextType           string  `json:"text_type"`
	Difficulty         string  `json:"difficulty"`
	CustomInstructions string  `json:"custom_instructions"`
	Model              string  `json:"model"`
	Temperature        float32 `json:"temperature"`
	MaxTokens          int     `json:"max_tokens"`
}

// outcomeResponse is the wire form of a generation outcome.
type outcomeResponse struct {
	Status       model.OutcomeStatus `json:"status"`
	Task         *model.Task         `json:"task"`
	Issues       []string            `json:"issues,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Attempts     int                 `json:"attempts"`
	QualityScore int                 `json:"quality_score"`
}

func (r generateRequest) toModel() (model.GenerationRequest, string) {
	topic := strings.TrimSpace(r.Topic)
	if topic == "" {
		return model.GenerationRequest{}, "topic is required"
	}
	if r.TextType != "" && !model.IsValidTextType(r.TextType) {
		return model.GenerationRequest{}, "unknown text_type " + r.TextType
	}
	return model.GenerationRequest{
		Topic:              topic,
		TextType:           model.TextType(r.TextType),
		Difficulty:         r.Difficulty,
		CustomInstructions: r.CustomInstructions,
		Model:              r.Model,
		Temperature:        r.Temperature,
		MaxTokens:          r.MaxTokens,
	}, ""
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	req, problem := body.toModel()
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	out := h.gen.Generate(r.Context(), req)
	quality := model.ValidationResult{Issues: out.Issues, Warnings: out.Warnings}.QualityScore()
	if _, err := h.store.SaveTask(out.Task, quality, ""); err != nil {
		writeError(w, http.StatusInternalServerError, "save task: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, outcomeResponse{
		Status:       out.Status,
		Task:         out.Task,
		Issues:       out.Issues,
		Warnings:     out.Warnings,
		Attempts:     out.Attempts,
		QualityScore: quality,
	})
}

func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	generatedBy := r.URL.Query().Get("generated_by")
	metas, err := h.store.ListTasks(generatedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if metas == nil {
		metas = []model.TaskMeta{}
	}
	writeJSON(w, http.StatusOK, metas)
}

func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	t, err := h.store.LoadTask(taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleImprove(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	orig, err := h.store.LoadTask(taskID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	out := h.gen.Improve(r.Context(), orig)
	quality := model.ValidationResult{Issues: out.Issues, Warnings: out.Warnings}.QualityScore()
	if out.Status != model.OutcomeFallback {
		// The improved version is saved as a new document; the ID
		// uniquifier files it next to the original.
		if _, err := h.store.SaveTask(out.Task, quality, ""); err != nil {
			writeError(w, http.StatusInternalServerError, "save improved task: "+err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, outcomeResponse{
		Status:       out.Status,
		Task:         out.Task,
		Issues:       out.Issues,
		Warnings:     out.Warnings,
		Attempts:     out.Attempts,
		QualityScore: quality,
	})
}

type batchRequest struct {
	Name     string   `json:"name"`
	Topics   []string `json:"topics"`
	TextType string   `json:"text_type"`
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	var topics []string
	for _, t := range body.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		writeError(w, http.StatusBadRequest, "at least one topic is required")
		return
	}
	if body.TextType != "" && !model.IsValidTextType(body.TextType) {
		writeError(w, http.StatusBadRequest, "unknown text_type "+body.TextType)
		return
	}

	b, err := h.store.CreateBatch(body.Name, topics)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Generation takes minutes for a long topic list, so the batch runs
	// detached from the request; clients poll GET /api/batches/{id}.
	go h.runBatch(b.ID, topics, model.TextType(body.TextType))

	writeJSON(w, http.StatusAccepted, b)
}

func (h *Handler) runBatch(batchID string, topics []string, textType model.TextType) {
	ctx := context.Background()
	for _, topic := range topics {
		out := h.gen.Generate(ctx, model.GenerationRequest{Topic: topic, TextType: textType})
		quality := model.ValidationResult{Issues: out.Issues, Warnings: out.Warnings}.QualityScore()
		if _, err := h.store.SaveTask(out.Task, quality, batchID); err != nil {
			slog.Error("batch save failed", "batch", batchID, "topic", topic, "error", err)
			continue
		}
		fallback := out.Status == model.OutcomeFallback
		if err := h.store.RecordBatchTask(batchID, fallback); err != nil {
			slog.Error("batch bookkeeping failed", "batch", batchID, "error", err)
		}
	}
	if err := h.store.FinishBatch(batchID); err != nil {
		slog.Error("finish batch failed", "batch", batchID, "error", err)
	}
	slog.Info("batch finished", "batch", batchID, "topics", len(topics))
}

func (h *Handler) handleListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.store.ListBatches()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handleLatestBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.LastBatch()
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no batches yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetBatch(chi.URLParam(r, "batchID"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	exp, err := h.store.ExportLibrary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

var _ Generator = (*task.Generator)(nil)
