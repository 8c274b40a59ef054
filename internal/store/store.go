// Package store persists generated tasks: full documents as JSON files
// in a tasks directory, plus a sqlite catalog of task metadata and
// batch runs.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"taskgen/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db       *sql.DB
	tasksDir string
}

// New opens the catalog database and ensures the tasks directory
// exists.
func New(dbPath, tasksDir string) (*Store, error) {
	if err := os.MkdirAll(tasksDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tasks dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows one writer; a single pooled connection also keeps
	// :memory: databases coherent across goroutines.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, tasksDir: tasksDir}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// TasksDir returns the directory task files are written to.
func (s *Store) TasksDir() string {
	return s.tasksDir
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		topic TEXT NOT NULL,
		text_type TEXT NOT NULL,
		generated_by TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		word_count INTEGER NOT NULL DEFAULT 0,
		question_count INTEGER NOT NULL DEFAULT 0,
		quality_score INTEGER NOT NULL DEFAULT 0,
		filename TEXT NOT NULL,
		batch_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		topics TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		fallbacks INTEGER NOT NULL DEFAULT 0,
		done INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveTask writes the full document to <task_id>.json in the tasks
// directory and records its catalog row. Task IDs that collide with an
// existing row get a numeric suffix, so repeated fallback tasks do not
// overwrite each other.
func (s *Store) SaveTask(t *model.Task, quality int, batchID string) (model.TaskMeta, error) {
	id, err := s.uniqueTaskID(t.TaskID)
	if err != nil {
		return model.TaskMeta{}, err
	}
	t.TaskID = id

	filename := id + ".json"
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return model.TaskMeta{}, fmt.Errorf("marshal task: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.tasksDir, filename), data, 0o644); err != nil {
		return model.TaskMeta{}, fmt.Errorf("write task file: %w", err)
	}

	meta := model.TaskMeta{
		TaskID:        id,
		Title:         t.Title,
		Topic:         t.Topic,
		TextType:      t.TextType,
		GeneratedBy:   t.GeneratedBy,
		Model:         t.Model,
		WordCount:     t.WordCount(),
		QuestionCount: len(t.Questions),
		QualityScore:  quality,
		Filename:      filename,
		BatchID:       batchID,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks (task_id, title, topic, text_type, generated_by, model,
		 word_count, question_count, quality_score, filename, batch_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.TaskID, meta.Title, meta.Topic, meta.TextType, meta.GeneratedBy, meta.Model,
		meta.WordCount, meta.QuestionCount, meta.QualityScore, meta.Filename, meta.BatchID, meta.CreatedAt,
	)
	if err != nil {
		return model.TaskMeta{}, fmt.Errorf("insert task row: %w", err)
	}
	return meta, nil
}

// uniqueTaskID appends _2, _3, ... until the ID is free in the catalog.
func (s *Store) uniqueTaskID(base string) (string, error) {
	if base == "" {
		base = "task"
	}
	id := base
	for n := 2; ; n++ {
		var count int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks WHERE task_id = ?`, id).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("check task_id: %w", err)
		}
		if count == 0 {
			return id, nil
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

// LoadTask reads a full task document back from its file.
func (s *Store) LoadTask(taskID string) (*model.Task, error) {
	var filename string
	err := s.db.QueryRow(`SELECT filename FROM tasks WHERE task_id = ?`, taskID).Scan(&filename)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s not found", taskID)
	}
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.tasksDir, filename))
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}
	var t model.Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task file %s: %w", filename, err)
	}
	return &t, nil
}

const taskColumns = `task_id, title, topic, text_type, generated_by, model,
	word_count, question_count, quality_score, filename, batch_id, created_at`

// ListTasks returns catalog rows, newest first. An empty generatedBy
// means no provenance filtering.
func (s *Store) ListTasks(generatedBy string) ([]model.TaskMeta, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if generatedBy != "" {
		query += ` WHERE generated_by = ?`
		args = append(args, generatedBy)
	}
	query += ` ORDER BY created_at DESC, task_id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var metas []model.TaskMeta
	for rows.Next() {
		m, err := scanTaskMeta(rows)
		if err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// GetTaskMeta returns one catalog row.
func (s *Store) GetTaskMeta(taskID string) (model.TaskMeta, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE task_id = ?`, taskID)
	return scanTaskMeta(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskMeta(row scanner) (model.TaskMeta, error) {
	var m model.TaskMeta
	err := row.Scan(&m.TaskID, &m.Title, &m.Topic, &m.TextType, &m.GeneratedBy, &m.Model,
		&m.WordCount, &m.QuestionCount, &m.QualityScore, &m.Filename, &m.BatchID, &m.CreatedAt)
	return m, err
}

// TaskCount returns how many tasks the catalog holds.
func (s *Store) TaskCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}
