package services

import (
	"strings"
	"unicode"
)

type suggestionTopic struct {
	keywords    []string
	suggestions []string
}

// 위에서부터 처음 일치하는 주제를 사용한다.
var suggestionTopics = []suggestionTopic{
	{
		keywords:    []string{"python"},
		suggestions: []string{"Features of Python", "Python vs JavaScript", "Popular Python libraries"},
	},
	{
		keywords:    []string{"javascript", "node.js", "nodejs"},
		suggestions: []string{"Features of JavaScript", "JavaScript vs TypeScript", "How the Node.js event loop works"},
	},
	{
		keywords:    []string{"golang", "go language"},
		suggestions: []string{"Features of Go", "Goroutines and channels", "Popular Go frameworks"},
	},
	{
		keywords:    []string{"java"},
		suggestions: []string{"Features of Java", "How the JVM works", "Java vs Kotlin"},
	},
	{
		keywords:    []string{"machine learning", "deep learning", "neural network", "ml"},
		suggestions: []string{"Types of machine learning", "Supervised vs unsupervised learning", "How to start with machine learning"},
	},
	{
		keywords:    []string{"data science", "data analysis", "pandas", "statistics"},
		suggestions: []string{"Data science tools", "Data cleaning techniques", "Data visualization basics"},
	},
	{
		keywords:    []string{"web development", "html", "css", "frontend", "backend"},
		suggestions: []string{"Frontend vs backend", "Popular web frameworks", "How to build a REST API"},
	},
}

var fallbackSuggestions = []string{
	"Can you explain that in more detail?",
	"Can you give me an example?",
	"What are the alternatives?",
	"How does this work in practice?",
}

// SuggestFollowUps 는 사용자 메시지의 키워드(대소문자 무시)로 후속 질문 제안을 고른다.
// 키워드는 단어 단위로 비교하므로 "javanese" 는 "java" 와 일치하지 않는다.
// 반환되는 슬라이스는 호출자가 수정해도 되는 복사본이다.
func SuggestFollowUps(message string) []string {
	normalized := wordPhrase(message)
	for _, topic := range suggestionTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(normalized, wordPhrase(kw)) {
				return append([]string(nil), topic.suggestions...)
			}
		}
	}
	return append([]string(nil), fallbackSuggestions...)
}

// wordPhrase 는 글자와 숫자가 아닌 문자로 토큰을 나누고, 앞뒤에 공백을 둔 소문자 구로 합친다.
// ("Node.js?" -> " node js ")
func wordPhrase(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ") + " "
}
