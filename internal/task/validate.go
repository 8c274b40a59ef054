// Package task implements the generation pipeline: prompt the model,
// recover its JSON, validate the result, retry, and fall back to a
// canned task when everything fails.
package task

import (
	"fmt"

	"taskgen/internal/model"
)

// Structural bounds for a usable task.
const (
	MinQuestions = 5
	MaxQuestions = 6
	MinWords     = 400
	MaxWords     = 800
)

// Validate checks a task against the schema floor. Hard issues make the
// task unusable; warnings are tolerable deviations.
func Validate(t *model.Task) model.ValidationResult {
	var r model.ValidationResult

	if t.TaskID == "" {
		r.Issues = append(r.Issues, "missing task_id")
	}
	if t.Title == "" {
		r.Issues = append(r.Issues, "missing title")
	}
	if t.Text == "" {
		r.Issues = append(r.Issues, "missing text")
	}

	switch n := len(t.Questions); {
	case n == 0:
		r.Issues = append(r.Issues, "missing questions")
	case n < MinQuestions:
		r.Issues = append(r.Issues, fmt.Sprintf("only %d questions, need at least %d", n, MinQuestions))
	case n > MaxQuestions:
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d questions, expected at most %d", n, MaxQuestions))
	}

	for i, q := range t.Questions {
		num := i + 1
		if q.Text == "" {
			r.Issues = append(r.Issues, fmt.Sprintf("question %d: missing question_text", num))
		}
		if !q.Options.ExactShape() {
			r.Issues = append(r.Issues, fmt.Sprintf("question %d: options must have exactly the keys A, B, C, D", num))
		}
		if q.CorrectAnswer == "" {
			r.Issues = append(r.Issues, fmt.Sprintf("question %d: missing correct_answer", num))
		} else if !q.Options.Has(q.CorrectAnswer) {
			r.Issues = append(r.Issues, fmt.Sprintf("question %d: correct_answer %q is not an option", num, q.CorrectAnswer))
		}
	}

	if t.Text != "" {
		if wc := t.WordCount(); wc < MinWords || wc > MaxWords {
			r.Warnings = append(r.Warnings, fmt.Sprintf("text is %d words, expected %d-%d", wc, MinWords, MaxWords))
		}
	}

	return r
}
