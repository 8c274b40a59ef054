// Package prompts renders the generation prompts from embedded
// templates: a system prompt carrying the format rules and a text-type
// style directive, and a user prompt embedding the full JSON schema
// template the model is asked to fill in.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"

	"taskgen/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// styleInstructions maps each text type to its prose-style directive.
var styleInstructions = map[model.TextType]string{
	model.TextMagazineArticle:     "Write as an engaging magazine article with a clear structure, subheadings if appropriate, and an informative yet accessible tone. Include expert quotes or statistics where relevant.",
	model.TextNewspaperArticle:    "Write as a newspaper feature article with journalistic style, factual reporting, and balanced perspective. Include relevant context and background information.",
	model.TextNovelExtract:        "Write as an excerpt from a contemporary novel with character development, dialogue, and narrative description. Focus on showing rather than telling.",
	model.TextBlogPost:            "Write as a personal blog post with first-person perspective, conversational tone, and personal reflections or experiences.",
	model.TextScienceArticle:      "Write as a popular science article that explains complex concepts in accessible language, with examples and analogies to help understanding.",
	model.TextCulturalReview:      "Write as a cultural review or commentary with analytical perspective, critical evaluation, and informed opinion.",
	model.TextProfessionalFeature: "Write as a professional feature article about workplace trends, career advice, or industry insights with practical information.",
	model.TextLifestyleFeature:    "Write as a lifestyle feature about personal interests, home, family, or hobbies with practical tips and relatable content.",
	model.TextTravelWriting:       "Write as travel writing with vivid descriptions of places, cultural observations, and personal travel experiences.",
	model.TextEducationalFeature:  "Write as an educational feature about learning, study techniques, or educational trends with informative and helpful content.",
}

// StyleInstruction returns the directive for a text type, defaulting to
// the magazine-article style for anything outside the catalog.
func StyleInstruction(t model.TextType) string {
	if s, ok := styleInstructions[t]; ok {
		return s
	}
	return styleInstructions[model.TextMagazineArticle]
}

var templateNames = []string{"system", "task", "improve_system", "improve"}

var (
	loadOnce sync.Once
	loadErr  error
	tmpls    map[string]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		tmpls = make(map[string]*template.Template)
		for _, name := range templateNames {
			content, err := templateFS.ReadFile("templates/" + name + ".txt")
			if err != nil {
				loadErr = fmt.Errorf("read prompt template %s: %w", name, err)
				return
			}
			t, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			tmpls[name] = t
		}
	})
	return loadErr
}

func render(name string, data any) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpls[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

type systemData struct {
	Difficulty       string
	StyleInstruction string
}

type taskData struct {
	Topic              string
	TextType           model.TextType
	Difficulty         string
	CustomInstructions string
}

type improveData struct {
	TaskJSON string
}

// Builder renders prompts from the embedded templates. The zero value
// is ready to use.
type Builder struct{}

// System builds the system prompt for a generation request.
func (Builder) System(req model.GenerationRequest) (string, error) {
	return render("system", systemData{
		Difficulty:       difficultyOrDefault(req.Difficulty),
		StyleInstruction: StyleInstruction(req.TextType),
	})
}

// Task builds the user prompt embedding the schema template.
func (Builder) Task(req model.GenerationRequest) (string, error) {
	return render("task", taskData{
		Topic:              req.Topic,
		TextType:           req.TextType,
		Difficulty:         difficultyOrDefault(req.Difficulty),
		CustomInstructions: req.CustomInstructions,
	})
}

// Improve builds the system and user prompts for re-working an
// existing task.
func (Builder) Improve(t *model.Task) (system, user string, err error) {
	system, err = render("improve_system", nil)
	if err != nil {
		return "", "", err
	}
	raw, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal task for improve prompt: %w", err)
	}
	user, err = render("improve", improveData{TaskJSON: string(raw)})
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func difficultyOrDefault(d string) string {
	if d == "" {
		return model.DefaultDifficulty
	}
	return d
}
