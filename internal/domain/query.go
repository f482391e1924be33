package domain

// Language is the detected language tag of a user query.
type Language string

const (
	// LanguageEnglish is the default query language.
	LanguageEnglish Language = "en"

	// LanguageChinese is detected when the query contains CJK characters.
	LanguageChinese Language = "zh"
)

// Query is the immutable user input for one review job.
// It is created once per job and never mutated afterwards.
type Query struct {
	// Text is the raw user query text.
	Text string

	// Language is the detected language tag, used to pick message templates.
	Language Language
}

// NewQuery creates a Query with the given text and language.
func NewQuery(text string, lang Language) Query {
	return Query{Text: text, Language: lang}
}
