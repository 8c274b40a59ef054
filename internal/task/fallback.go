package task

import (
	"fmt"
	"strings"

	"taskgen/internal/model"
)

// Fallback builds a deterministic task for the requested topic without
// touching the LLM. The result always passes Validate with no hard
// issues, so a generation call can never come back empty handed.
func Fallback(req model.GenerationRequest) *model.Task {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = "everyday life"
	}
	textType := req.TextType
	if textType == "" {
		textType = model.TextMagazineArticle
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = model.DefaultDifficulty
	}

	text := fmt.Sprintf(
		"The topic of %s has attracted growing attention in recent years. "+
			"People from many different backgrounds are discovering how it shapes their daily routines, "+
			"and researchers continue to study its wider effects on society. "+
			"Although opinions differ about the best way to approach %s, most experts agree that understanding it "+
			"has become more important than ever before.\n\n"+
			"One reason for this interest is the speed at which things are changing. "+
			"What seemed unusual only a decade ago is now a normal part of life for millions of people. "+
			"Schools, companies and local communities have all had to adapt, sometimes with surprising results. "+
			"Critics point out that not every change has been positive, and they warn against accepting new ideas "+
			"without asking careful questions first.\n\n"+
			"Supporters, on the other hand, argue that the benefits clearly outweigh the drawbacks. "+
			"They describe how %s has opened doors that previous generations could only dream about, "+
			"and they believe the best developments are still to come. "+
			"Whatever position people take, the debate itself shows how much the subject matters.\n\n"+
			"Looking ahead, the future of %s looks promising, even if nobody can say exactly what it will bring. "+
			"The most sensible approach, many suggest, is to stay curious, keep learning, "+
			"and be ready to change your mind when the evidence points somewhere new.",
		topic, topic, topic, topic)

	questions := []model.Question{
		{
			Number: 1,
			Text:   fmt.Sprintf("What can be inferred about people's attitude towards %s?", topic),
			Options: model.NewOptions(
				"Everyone agrees it is harmful",
				"Opinions about it are divided",
				"Nobody takes it seriously",
				"It is only relevant to experts",
			),
			CorrectAnswer: model.LabelB,
			Type:          model.QuestionInference,
		},
		{
			Number: 2,
			Text:   "In the text, the word 'drawbacks' is closest in meaning to",
			Options: model.NewOptions(
				"advantages",
				"disadvantages",
				"surprises",
				"opportunities",
			),
			CorrectAnswer: model.LabelB,
			Type:          model.QuestionVocabulary,
		},
		{
			Number: 3,
			Text:   fmt.Sprintf("According to the text, why has interest in %s grown?", topic),
			Options: model.NewOptions(
				"Governments have made it compulsory",
				"It affects people's daily lives",
				"It has become cheaper recently",
				"Researchers have stopped studying it",
			),
			CorrectAnswer: model.LabelB,
			Type:          model.QuestionDetail,
		},
		{
			Number: 4,
			Text:   "What is the writer's attitude towards the subject?",
			Options: model.NewOptions(
				"Strongly critical",
				"Completely indifferent",
				"Balanced and open minded",
				"Dismissive of all change",
			),
			CorrectAnswer: model.LabelC,
			Type:          model.QuestionAttitude,
		},
		{
			Number: 5,
			Text:   "In the final paragraph, 'it' refers to",
			Options: model.NewOptions(
				"the future",
				"the evidence",
				"the debate",
				"the approach",
			),
			CorrectAnswer: model.LabelA,
			Type:          model.QuestionReference,
		},
		{
			Number: 6,
			Text:   "What is the main idea of the text?",
			Options: model.NewOptions(
				fmt.Sprintf("The topic of %s should be avoided at all costs", topic),
				fmt.Sprintf("Understanding %s matters despite disagreement about it", topic),
				"Researchers no longer study modern life",
				"Previous generations had better ideas",
			),
			CorrectAnswer: model.LabelB,
			Type:          model.QuestionMainIdea,
		},
	}

	return &model.Task{
		TaskID:        "fallback_01",
		Title:         fmt.Sprintf("Reading: %s", topic),
		Topic:         topic,
		TextType:      textType,
		Difficulty:    difficulty,
		Text:          text,
		Questions:     questions,
		GeneratedBy:   model.GeneratedByFallback,
		TopicCategory: CategorizeTopic(topic),
	}
}
