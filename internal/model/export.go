package model

import "time"

// TaskMeta is the catalog row kept for each saved task.
type TaskMeta struct {
	TaskID        string    `json:"task_id"`
	Title         string    `json:"title"`
	Topic         string    `json:"topic"`
	TextType      TextType  `json:"text_type"`
	GeneratedBy   string    `json:"generated_by"`
	Model         string    `json:"model"`
	WordCount     int       `json:"word_count"`
	QuestionCount int       `json:"question_count"`
	QualityScore  int       `json:"quality_score"`
	Filename      string    `json:"filename"`
	BatchID       string    `json:"batch_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Batch records one batch-generation run.
type Batch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Topics    []string  `json:"topics"`
	Completed int       `json:"completed"`
	Fallbacks int       `json:"fallbacks"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

// LibraryExport is the top-level JSON structure for a full task-library
// export.
type LibraryExport struct {
	ExportedAt time.Time `json:"exported_at"`
	TaskCount  int       `json:"task_count"`
	Tasks      []Task    `json:"tasks"`
}
