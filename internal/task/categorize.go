package task

import "strings"

// topicCategories maps a category name to the keywords that select it.
// Order matters: the first category with a matching keyword wins.
var topicCategories = []struct {
	name     string
	keywords []string
}{
	{"health_and_fitness", []string{"health", "fitness", "exercise", "sport", "diet", "nutrition", "wellbeing", "medicine"}},
	{"technology", []string{"technology", "digital", "internet", "computer", "smartphone", "social media", "artificial intelligence", "robot"}},
	{"travel_and_culture", []string{"travel", "tourism", "culture", "tradition", "festival", "country", "language", "abroad"}},
	{"environment", []string{"environment", "climate", "nature", "wildlife", "pollution", "recycling", "energy", "sustainable"}},
	{"education", []string{"education", "school", "university", "learning", "study", "student", "teacher", "exam"}},
	{"business_and_work", []string{"business", "work", "career", "job", "company", "office", "economy", "money"}},
}

// CategorizeTopic buckets a free-text topic into a coarse category for
// library browsing. Unmatched topics land in "general".
func CategorizeTopic(topic string) string {
	t := strings.ToLower(topic)
	for _, c := range topicCategories {
		for _, kw := range c.keywords {
			if strings.Contains(t, kw) {
				return c.name
			}
		}
	}
	return "general"
}
