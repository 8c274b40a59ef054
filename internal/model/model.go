// Package model defines the reading-task document types shared across
// the generator, validator, store, and HTTP API.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TextType identifies one of the prose styles a task can be written in.
type TextType string

const (
	TextMagazineArticle     TextType = "magazine_article"
	TextNewspaperArticle    TextType = "newspaper_article"
	TextNovelExtract        TextType = "novel_extract"
	TextBlogPost            TextType = "blog_post"
	TextScienceArticle      TextType = "science_article"
	TextCulturalReview      TextType = "cultural_review"
	TextProfessionalFeature TextType = "professional_feature"
	TextLifestyleFeature    TextType = "lifestyle_feature"
	TextTravelWriting       TextType = "travel_writing"
	TextEducationalFeature  TextType = "educational_feature"
)

var textTypes = []TextType{
	TextMagazineArticle,
	TextNewspaperArticle,
	TextNovelExtract,
	TextBlogPost,
	TextScienceArticle,
	TextCulturalReview,
	TextProfessionalFeature,
	TextLifestyleFeature,
	TextTravelWriting,
	TextEducationalFeature,
}

// TextTypes returns the full catalog in a stable order.
func TextTypes() []TextType {
	out := make([]TextType, len(textTypes))
	copy(out, textTypes)
	return out
}

// IsValidTextType checks whether t names a catalog entry.
func IsValidTextType(t string) bool {
	for _, tt := range textTypes {
		if TextType(t) == tt {
			return true
		}
	}
	return false
}

// Question type tags, one per slot in a full task.
const (
	QuestionInference  = "inference"
	QuestionVocabulary = "vocabulary"
	QuestionDetail     = "detail"
	QuestionAttitude   = "attitude"
	QuestionReference  = "reference"
	QuestionMainIdea   = "main_idea"
)

// QuestionTypes returns the question-type tags in canonical order.
func QuestionTypes() []string {
	return []string{
		QuestionInference,
		QuestionVocabulary,
		QuestionDetail,
		QuestionAttitude,
		QuestionReference,
		QuestionMainIdea,
	}
}

// DefaultDifficulty is the CEFR level all tasks target.
const DefaultDifficulty = "B2"

// Provenance labels recorded in generated_by.
const (
	GeneratedByOllama   = "ollama"
	GeneratedByFallback = "fallback"
)

// Label is a multiple-choice option label.
type Label string

const (
	LabelA Label = "A"
	LabelB Label = "B"
	LabelC Label = "C"
	LabelD Label = "D"
)

var labels = [4]Label{LabelA, LabelB, LabelC, LabelD}

// Labels returns the four option labels in order.
func Labels() [4]Label {
	return labels
}

func labelIndex(l Label) int {
	for i, x := range labels {
		if x == l {
			return i
		}
	}
	return -1
}

// Options holds a question's answer options in a fixed four-slot array
// indexed by label. Decoding is total over JSON objects: options with
// missing, extra, or unknown keys still decode, and ExactShape reports
// whether the inbound object had exactly the keys A, B, C, D so the
// validator can flag the rest.
type Options struct {
	texts   [4]string
	present [4]bool
	extra   int // keys outside A-D seen during decode
}

// NewOptions builds a well-formed option set.
func NewOptions(a, b, c, d string) Options {
	return Options{
		texts:   [4]string{a, b, c, d},
		present: [4]bool{true, true, true, true},
	}
}

// Get returns the text for a label, or empty for an unknown label.
func (o Options) Get(l Label) string {
	i := labelIndex(l)
	if i < 0 {
		return ""
	}
	return o.texts[i]
}

// Has reports whether the label was present in the decoded options.
func (o Options) Has(l Label) bool {
	i := labelIndex(l)
	return i >= 0 && o.present[i]
}

// Count returns how many entries the decoded options object had.
func (o Options) Count() int {
	n := o.extra
	for _, p := range o.present {
		if p {
			n++
		}
	}
	return n
}

// ExactShape reports whether the options had exactly the keys A-D.
func (o Options) ExactShape() bool {
	return o.extra == 0 && o.present[0] && o.present[1] && o.present[2] && o.present[3]
}

// MarshalJSON emits the options with a fixed A, B, C, D key order.
func (o Options) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		key, err := json.Marshal(string(l))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.texts[i])
		if err != nil {
			return nil, err
		}
		b.Write(key)
		b.WriteByte(':')
		b.Write(val)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON decodes an options object, tolerating any key set.
func (o *Options) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*o = Options{}
	for k, v := range m {
		if i := labelIndex(Label(k)); i >= 0 {
			o.texts[i] = v
			o.present[i] = true
		} else {
			o.extra++
		}
	}
	return nil
}

// Question is one multiple-choice question within a task.
type Question struct {
	Number        int     `json:"question_number"`
	Text          string  `json:"question_text"`
	Options       Options `json:"options"`
	CorrectAnswer Label   `json:"correct_answer"`
	Type          string  `json:"question_type,omitempty"`
}

// Task is a complete reading comprehension task. Field order matches
// the canonical on-disk key order.
type Task struct {
	TaskID        string     `json:"task_id"`
	Title         string     `json:"title"`
	Topic         string     `json:"topic"`
	TextType      TextType   `json:"text_type"`
	Difficulty    string     `json:"difficulty"`
	Text          string     `json:"text"`
	Questions     []Question `json:"questions"`
	GeneratedBy   string     `json:"generated_by,omitempty"`
	Model         string     `json:"model,omitempty"`
	TopicCategory string     `json:"topic_category,omitempty"`
}

// WordCount counts whitespace-separated tokens in the body text.
func (t *Task) WordCount() int {
	return len(strings.Fields(t.Text))
}

// GenerationRequest is the immutable input to one generation call.
type GenerationRequest struct {
	Topic              string
	TextType           TextType
	Difficulty         string
	CustomInstructions string
	Model              string  // empty means the generator's default
	Temperature        float32 // 0 means the generator's default
	MaxTokens          int     // 0 means the generator's default
}

// ValidationResult separates disqualifying schema issues from tolerable
// warnings.
type ValidationResult struct {
	Issues   []string
	Warnings []string
}

// IsValid reports whether the document has no hard issues.
func (r ValidationResult) IsValid() bool {
	return len(r.Issues) == 0
}

// QualityScore derives a 0-100 reporting score. It plays no role in
// accept/reject decisions.
func (r ValidationResult) QualityScore() int {
	score := 100 - 20*len(r.Issues) - 5*len(r.Warnings)
	if score < 0 {
		return 0
	}
	return score
}

// OutcomeStatus tags the result of a generation call.
type OutcomeStatus string

const (
	OutcomeAccepted             OutcomeStatus = "accepted"
	OutcomeAcceptedWithWarnings OutcomeStatus = "accepted_with_warnings"
	OutcomeFallback             OutcomeStatus = "fallback"
)

// Outcome is what a generation call always returns: a usable task plus
// how it was arrived at. There is no failure case.
type Outcome struct {
	Status   OutcomeStatus
	Task     *Task
	Issues   []string
	Warnings []string
	Attempts int
}
