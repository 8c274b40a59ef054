package task

import (
	"strings"
	"testing"

	"taskgen/internal/model"
)

// goodTask returns a task that passes validation with no issues or
// warnings.
func goodTask(t *testing.T) *model.Task {
	t.Helper()
	questions := make([]model.Question, 6)
	for i := range questions {
		questions[i] = model.Question{
			Number:        i + 1,
			Text:          "What does the text say?",
			Options:       model.NewOptions("one", "two", "three", "four"),
			CorrectAnswer: model.LabelA,
		}
	}
	return &model.Task{
		TaskID:     "task_01",
		Title:      "A Walk in the Hills",
		Topic:      "hiking",
		TextType:   model.TextMagazineArticle,
		Difficulty: model.DefaultDifficulty,
		Text:       strings.Repeat("word ", 500),
		Questions:  questions,
	}
}

func TestValidateGoodTask(t *testing.T) {
	res := Validate(goodTask(t))
	if !res.IsValid() {
		t.Fatalf("unexpected issues: %v", res.Issues)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", res.Warnings)
	}
	if got := res.QualityScore(); got != 100 {
		t.Errorf("QualityScore = %d, want 100", got)
	}
}

func TestValidateHardIssues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Task)
		want   string
	}{
		{"missing task_id", func(tk *model.Task) { tk.TaskID = "" }, "missing task_id"},
		{"missing title", func(tk *model.Task) { tk.Title = "" }, "missing title"},
		{"missing text", func(tk *model.Task) { tk.Text = "" }, "missing text"},
		{"no questions", func(tk *model.Task) { tk.Questions = nil }, "missing questions"},
		{"too few questions", func(tk *model.Task) { tk.Questions = tk.Questions[:4] }, "only 4 questions"},
		{"missing question text", func(tk *model.Task) { tk.Questions[2].Text = "" }, "question 3: missing question_text"},
		{"missing correct answer", func(tk *model.Task) { tk.Questions[0].CorrectAnswer = "" }, "question 1: missing correct_answer"},
		{"answer not an option", func(tk *model.Task) { tk.Questions[5].CorrectAnswer = "E" }, `question 6: correct_answer "E" is not an option`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := goodTask(t)
			tt.mutate(tk)
			res := Validate(tk)
			if res.IsValid() {
				t.Fatal("expected hard issues")
			}
			found := false
			for _, issue := range res.Issues {
				if strings.Contains(issue, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("issues %v do not mention %q", res.Issues, tt.want)
			}
		})
	}
}

func TestValidateOptionShape(t *testing.T) {
	tk := goodTask(t)
	var opts model.Options
	if err := opts.UnmarshalJSON([]byte(`{"A": "one", "B": "two", "C": "three"}`)); err != nil {
		t.Fatal(err)
	}
	tk.Questions[1].Options = opts

	res := Validate(tk)
	if res.IsValid() {
		t.Fatal("expected hard issues")
	}
	want := "question 2: options must have exactly the keys A, B, C, D"
	found := false
	for _, issue := range res.Issues {
		if issue == want {
			found = true
		}
	}
	if !found {
		t.Errorf("issues %v missing %q", res.Issues, want)
	}
}

func TestValidateWarnings(t *testing.T) {
	t.Run("short text", func(t *testing.T) {
		tk := goodTask(t)
		tk.Text = strings.Repeat("word ", 100)
		res := Validate(tk)
		if !res.IsValid() {
			t.Fatalf("word count must not be a hard issue: %v", res.Issues)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "100 words") {
			t.Errorf("warnings = %v", res.Warnings)
		}
	})
	t.Run("long text", func(t *testing.T) {
		tk := goodTask(t)
		tk.Text = strings.Repeat("word ", 820)
		res := Validate(tk)
		if !res.IsValid() {
			t.Fatalf("word count must not be a hard issue: %v", res.Issues)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "820 words") {
			t.Errorf("warnings = %v", res.Warnings)
		}
	})
	t.Run("too many questions", func(t *testing.T) {
		tk := goodTask(t)
		extra := tk.Questions[0]
		extra.Number = 7
		tk.Questions = append(tk.Questions, extra)
		res := Validate(tk)
		if !res.IsValid() {
			t.Fatalf("question surplus must not be a hard issue: %v", res.Issues)
		}
		if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "7 questions") {
			t.Errorf("warnings = %v", res.Warnings)
		}
	})
}

func TestQualityScoreFloor(t *testing.T) {
	res := Validate(&model.Task{})
	if got := res.QualityScore(); got != 0 {
		t.Errorf("QualityScore = %d, want 0", got)
	}
}

func TestFallbackPassesValidation(t *testing.T) {
	for _, topic := range []string{"space travel", "", "  "} {
		tk := Fallback(model.GenerationRequest{Topic: topic})
		res := Validate(tk)
		if !res.IsValid() {
			t.Errorf("topic %q: fallback has issues %v", topic, res.Issues)
		}
		if tk.GeneratedBy != model.GeneratedByFallback {
			t.Errorf("generated_by = %q", tk.GeneratedBy)
		}
		if len(tk.Questions) != 6 {
			t.Errorf("fallback has %d questions", len(tk.Questions))
		}
	}
}

func TestCategorizeTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Healthy eating habits", "health_and_fitness"},
		{"The rise of social media", "technology"},
		{"Festivals around the world", "travel_and_culture"},
		{"Climate change in cities", "environment"},
		{"Choosing a university", "education"},
		{"Starting your own company", "business_and_work"},
		{"Medieval castles", "general"},
	}
	for _, tt := range tests {
		if got := CategorizeTopic(tt.topic); got != tt.want {
			t.Errorf("CategorizeTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
