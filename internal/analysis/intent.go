package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarstream/literature-review-service/internal/domain"
	"github.com/scholarstream/literature-review-service/internal/llm"
)

// maxRecommendedKeywords caps the keyword list parsed from the intent
// verdict.
const maxRecommendedKeywords = 5

// Intent is the structured result of query intent analysis. All fields
// except RawResponse may be empty when the model's verdict omits the
// corresponding section.
type Intent struct {
	// RawResponse is the unparsed model output.
	RawResponse string
	// FullName is the expanded form of any abbreviation in the query.
	FullName string
	// Domain is the research field the query belongs to.
	Domain string
	// KeyConcepts lists the central concepts behind the query.
	KeyConcepts string
	// Disambiguation explains which reading of an ambiguous query was
	// chosen.
	Disambiguation string
	// RecommendedKeywords are disambiguated search terms, at most
	// maxRecommendedKeywords of them.
	RecommendedKeywords []string
}

// AnalyzeIntent runs a deep intent analysis on the query using the
// reasoning model and parses the structured sections out of the
// verdict.
func (a *Analyzer) AnalyzeIntent(ctx context.Context, q domain.Query) (*Intent, error) {
	resp, err := a.generate(ctx, "intent_analysis", llm.GenerateRequest{
		Prompt:            intentAnalysisPrompt(q),
		UseReasoningModel: true,
	})
	if err != nil {
		return nil, fmt.Errorf("intent analysis: %w", err)
	}
	return parseIntentResponse(resp), nil
}

// intentField identifies one section of the verdict by its header
// markers. Markers are checked in order; more specific markers must
// come before substrings of themselves (e.g. "研究领域" before "领域").
type intentField struct {
	name    string
	markers []string
}

var intentFields = []intentField{
	{name: "full_name", markers: []string{"技术全称", "Full Name", "全称"}},
	{name: "domain", markers: []string{"研究领域", "Domain", "领域"}},
	{name: "key_concepts", markers: []string{"关键概念", "Key Concepts", "概念"}},
	{name: "disambiguation", markers: []string{"歧义", "Disambiguation", "澄清"}},
	{name: "keywords", markers: []string{"推荐关键词", "Recommended Keywords", "关键词"}},
}

// parseIntentResponse extracts the labelled sections from a verdict.
// Each section starts at a line containing one of its header markers;
// text after the first colon on the header line and all following
// lines up to the next header belong to the section.
func parseIntentResponse(resp string) *Intent {
	intent := &Intent{RawResponse: resp}

	sections := make(map[string][]string)
	var current string

	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if field, ok := matchIntentField(line); ok {
			current = field
			if value := headerValue(line); value != "" {
				sections[current] = append(sections[current], value)
			}
			continue
		}
		if current != "" {
			sections[current] = append(sections[current], line)
		}
	}

	join := func(field string) string {
		return strings.TrimSpace(strings.Join(sections[field], "\n"))
	}
	intent.FullName = join("full_name")
	intent.Domain = join("domain")
	intent.KeyConcepts = join("key_concepts")
	intent.Disambiguation = join("disambiguation")

	for _, kw := range strings.Split(join("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			intent.RecommendedKeywords = append(intent.RecommendedKeywords, kw)
		}
		if len(intent.RecommendedKeywords) == maxRecommendedKeywords {
			break
		}
	}
	return intent
}

func matchIntentField(line string) (string, bool) {
	for _, f := range intentFields {
		for _, marker := range f.markers {
			if strings.Contains(line, marker) {
				return f.name, true
			}
		}
	}
	return "", false
}

// headerValue returns the text after the first colon on a header line.
func headerValue(line string) string {
	for _, sep := range []string{":", "："} {
		if i := strings.Index(line, sep); i >= 0 {
			return strings.TrimSpace(line[i+len(sep):])
		}
	}
	return ""
}
