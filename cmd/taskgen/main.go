package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskgen/internal/handler"
	"taskgen/internal/llm"
	"taskgen/internal/llm/prompts"
	"taskgen/internal/model"
	"taskgen/internal/store"
	"taskgen/internal/task"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskgen",
		Short: "Cambridge B2 reading task generator powered by local LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), batchCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `taskgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// addCommonFlags registers the flags every subcommand shares.
func addCommonFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db", "taskgen.db", "SQLite catalog path")
	f.String("tasks-dir", "generated_tasks", "Directory for task JSON files")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

// addLLMFlags registers the flags for commands that call the model.
func addLLMFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", task.DefaultModel, "LLM model name")
	f.Float32("temperature", task.DefaultTemperature, "Sampling temperature")
	f.Int("max-tokens", task.DefaultMaxTokens, "Completion token limit")
	f.Duration("llm-timeout", llm.DefaultTimeout, "Per-request LLM timeout")
	f.Int("max-attempts", task.DefaultMaxAttempts, "Generation attempts before falling back")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP task generation server",
		RunE:  runServe,
	}
	cmd.Flags().StringP("addr", "a", ":8080", "HTTP listen address")
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one reading task and save it",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.StringP("topic", "t", "", "Topic for the reading text (required)")
	f.String("text-type", string(model.TextMagazineArticle), "Text style (see `taskgen serve` API /api/texttypes)")
	f.String("difficulty", model.DefaultDifficulty, "CEFR difficulty level")
	f.String("instructions", "", "Extra instructions passed to the model")
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate tasks for a list of topics",
		RunE:  runBatch,
	}
	f := cmd.Flags()
	f.StringSliceP("topics", "t", nil, "Topics to generate (repeatable, required)")
	f.String("name", "", "Batch name for the catalog")
	f.String("text-type", string(model.TextMagazineArticle), "Text style for every task")
	addCommonFlags(cmd)
	addLLMFlags(cmd)
	_ = cmd.MarkFlagRequired("topics")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the task library as JSON",
		RunE:  runExport,
	}
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	addCommonFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("TASKGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("taskgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/taskgen")
	v.AddConfigPath("/etc/taskgen")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db"), v.GetString("tasks-dir"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func buildGenerator(v *viper.Viper) (*task.Generator, *llm.Client) {
	client := llm.New(llm.Config{
		BaseURL:     v.GetString("llm-url"),
		APIKey:      v.GetString("llm-key"),
		Model:       v.GetString("llm-model"),
		Temperature: float32(v.GetFloat64("temperature")),
		MaxTokens:   v.GetInt("max-tokens"),
		Timeout:     v.GetDuration("llm-timeout"),
	})
	gen := task.NewGenerator(client, prompts.Builder{}, task.Config{
		Model:       v.GetString("llm-model"),
		Temperature: float32(v.GetFloat64("temperature")),
		MaxTokens:   v.GetInt("max-tokens"),
		MaxAttempts: v.GetInt("max-attempts"),
	})
	return gen, client
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	gen, client := buildGenerator(v)
	if err := client.Ping(cmd.Context()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	h := handler.New(db, gen, client)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"db", v.GetString("db"),
		"tasks_dir", v.GetString("tasks-dir"),
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	textType := v.GetString("text-type")
	if !model.IsValidTextType(textType) {
		return fmt.Errorf("unknown text-type %q", textType)
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	gen, _ := buildGenerator(v)
	out := gen.Generate(cmd.Context(), model.GenerationRequest{
		Topic:              v.GetString("topic"),
		TextType:           model.TextType(textType),
		Difficulty:         v.GetString("difficulty"),
		CustomInstructions: v.GetString("instructions"),
	})

	quality := model.ValidationResult{Issues: out.Issues, Warnings: out.Warnings}.QualityScore()
	meta, err := db.SaveTask(out.Task, quality, "")
	if err != nil {
		return fmt.Errorf("save task: %w", err)
	}

	slog.Info("task saved",
		"task_id", meta.TaskID,
		"status", out.Status,
		"attempts", out.Attempts,
		"quality_score", quality,
		"file", meta.Filename,
	)
	for _, issue := range out.Issues {
		slog.Warn("task issue", "task_id", meta.TaskID, "issue", issue)
	}
	for _, warning := range out.Warnings {
		slog.Warn("task warning", "task_id", meta.TaskID, "warning", warning)
	}
	return nil
}

func runBatch(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	textType := v.GetString("text-type")
	if !model.IsValidTextType(textType) {
		return fmt.Errorf("unknown text-type %q", textType)
	}
	topics := v.GetStringSlice("topics")
	if len(topics) == 0 {
		return fmt.Errorf("at least one topic is required")
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	gen, _ := buildGenerator(v)
	b, err := db.CreateBatch(v.GetString("name"), topics)
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	slog.Info("batch started", "batch", b.ID, "topics", len(topics))

	ctx := cmd.Context()
	for _, topic := range topics {
		out := gen.Generate(ctx, model.GenerationRequest{
			Topic:    topic,
			TextType: model.TextType(textType),
		})
		quality := model.ValidationResult{Issues: out.Issues, Warnings: out.Warnings}.QualityScore()
		meta, err := db.SaveTask(out.Task, quality, b.ID)
		if err != nil {
			return fmt.Errorf("save task for %q: %w", topic, err)
		}
		if err := db.RecordBatchTask(b.ID, out.Status == model.OutcomeFallback); err != nil {
			return fmt.Errorf("record batch progress: %w", err)
		}
		slog.Info("batch task done", "batch", b.ID, "topic", topic, "task_id", meta.TaskID, "status", out.Status)
	}
	if err := db.FinishBatch(b.ID); err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}

	final, err := db.GetBatch(b.ID)
	if err != nil {
		return err
	}
	slog.Info("batch finished", "batch", final.ID, "completed", final.Completed, "fallbacks", final.Fallbacks)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	export, err := db.ExportLibrary()
	if err != nil {
		return fmt.Errorf("export library: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
