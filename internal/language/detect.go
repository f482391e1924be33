// Package language provides a lightweight language detector for user queries.
package language

import (
	"regexp"

	"github.com/scholarstream/literature-review-service/internal/domain"
)

// cjkRegex matches CJK unified ideographs.
var cjkRegex = regexp.MustCompile(`\p{Han}`)

// Detect returns the language tag for the given query text.
// Any query containing CJK characters is treated as Chinese;
// everything else defaults to English.
func Detect(text string) domain.Language {
	if cjkRegex.MatchString(text) {
		return domain.LanguageChinese
	}
	return domain.LanguageEnglish
}
