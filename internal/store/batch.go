package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskgen/internal/model"
)

// topicSeparator joins batch topics into one column. Topics are
// free-text but newline-free, so a newline is a safe delimiter.
const topicSeparator = "\n"

// CreateBatch registers a batch run and returns it with a fresh ID.
func (s *Store) CreateBatch(name string, topics []string) (model.Batch, error) {
	b := model.Batch{
		ID:        uuid.NewString(),
		Name:      name,
		Topics:    topics,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO batches (id, name, topics, completed, fallbacks, done, created_at)
		 VALUES (?, ?, ?, 0, 0, 0, ?)`,
		b.ID, b.Name, strings.Join(topics, topicSeparator), b.CreatedAt,
	)
	if err != nil {
		return model.Batch{}, fmt.Errorf("insert batch: %w", err)
	}
	if err := s.SetMetadata("last_batch_id", b.ID); err != nil {
		return model.Batch{}, err
	}
	return b, nil
}

// RecordBatchTask bumps the batch counters after one topic finishes.
func (s *Store) RecordBatchTask(batchID string, fallback bool) error {
	query := `UPDATE batches SET completed = completed + 1 WHERE id = ?`
	if fallback {
		query = `UPDATE batches SET completed = completed + 1, fallbacks = fallbacks + 1 WHERE id = ?`
	}
	_, err := s.db.Exec(query, batchID)
	return err
}

// FinishBatch marks a batch done.
func (s *Store) FinishBatch(batchID string) error {
	_, err := s.db.Exec(`UPDATE batches SET done = 1 WHERE id = ?`, batchID)
	return err
}

// GetBatch returns one batch by ID.
func (s *Store) GetBatch(id string) (model.Batch, error) {
	row := s.db.QueryRow(
		`SELECT id, name, topics, completed, fallbacks, done, created_at FROM batches WHERE id = ?`, id)
	return scanBatch(row)
}

// LastBatch returns the most recently created batch, or sql.ErrNoRows
// when none exists yet.
func (s *Store) LastBatch() (model.Batch, error) {
	id, err := s.GetMetadata("last_batch_id")
	if err != nil {
		return model.Batch{}, err
	}
	if id == "" {
		return model.Batch{}, sql.ErrNoRows
	}
	return s.GetBatch(id)
}

// ListBatches returns all batches, newest first.
func (s *Store) ListBatches() ([]model.Batch, error) {
	rows, err := s.db.Query(
		`SELECT id, name, topics, completed, fallbacks, done, created_at FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func scanBatch(row scanner) (model.Batch, error) {
	var b model.Batch
	var topics string
	err := row.Scan(&b.ID, &b.Name, &topics, &b.Completed, &b.Fallbacks, &b.Done, &b.CreatedAt)
	if err != nil {
		return model.Batch{}, err
	}
	if topics != "" {
		b.Topics = strings.Split(topics, topicSeparator)
	}
	return b, nil
}
