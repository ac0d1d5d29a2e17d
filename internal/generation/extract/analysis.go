package extract

import (
	"encoding/json"
	"strings"
)

// unscoredConfidence is assigned when the model returns a bare value
// without a confidence.
const unscoredConfidence = 0.5

// UnmarshalJSON accepts both {"value": "...", "confidence": 0.8} and a
// bare string.
func (f *ScoredField) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*f = ScoredField{Value: bare, Confidence: unscoredConfidence}
		return nil
	}
	type plain ScoredField
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = ScoredField(p)
	return nil
}

// UnmarshalJSON accepts both the scored object and a bare string array.
func (l *ScoredList) UnmarshalJSON(data []byte) error {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		*l = ScoredList{Value: bare, Confidence: unscoredConfidence}
		return nil
	}
	type plain ScoredList
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = ScoredList(p)
	return nil
}

// BusinessAnalysis parses the JSON reply of a business analysis. Scored
// fields with a blank value are dropped and confidences are clamped to
// [0,1].
func BusinessAnalysis(text string) (BusinessAnalysisResult, bool) {
	res, ok := JSON[BusinessAnalysisResult](text)
	if !ok {
		return BusinessAnalysisResult{}, false
	}

	for _, f := range []**ScoredField{
		&res.CompanyName, &res.Industry, &res.Description, &res.TargetAudience,
		&res.ValueProposition, &res.Location, &res.Tone,
	} {
		*f = normalizeScored(*f)
	}
	if res.Products != nil {
		res.Products.Value = cleanStrings(res.Products.Value)
		if len(res.Products.Value) == 0 {
			res.Products = nil
		} else {
			res.Products.Confidence = clamp01(res.Products.Confidence)
		}
	}

	links := make(map[string]string, len(res.SocialLinks))
	for k, v := range res.SocialLinks {
		k, v = strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v)
		if k != "" && v != "" {
			links[k] = v
		}
	}
	res.SocialLinks = nil
	if len(links) > 0 {
		res.SocialLinks = links
	}
	res.FollowUpQuestions = cleanStrings(res.FollowUpQuestions)

	matched := res.CompanyName != nil || res.Industry != nil || res.Description != nil ||
		res.TargetAudience != nil || res.ValueProposition != nil || res.Location != nil ||
		res.Tone != nil || res.Products != nil || res.SocialLinks != nil || res.FollowUpQuestions != nil
	return res, matched
}

func normalizeScored(f *ScoredField) *ScoredField {
	if f == nil {
		return nil
	}
	v := strings.TrimSpace(f.Value)
	if v == "" {
		return nil
	}
	return &ScoredField{Value: v, Confidence: clamp01(f.Confidence)}
}

// ContentSuggestions parses either a bare JSON array of suggestions or an
// object wrapping it under "suggestions". Entries without a title or a
// description are dropped.
func ContentSuggestions(text string) ([]ContentSuggestion, bool) {
	list, ok := JSON[[]ContentSuggestion](text)
	if !ok {
		wrapped, wok := JSON[struct {
			Suggestions []ContentSuggestion `json:"suggestions"`
		}](text)
		if !wok {
			return nil, false
		}
		list = wrapped.Suggestions
	}

	var out []ContentSuggestion
	for _, s := range list {
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		if s.Title == "" && s.Description == "" {
			continue
		}
		s.Type = strings.ToLower(strings.TrimSpace(s.Type))
		s.Category = strings.ToLower(strings.TrimSpace(s.Category))
		s.ImpactPercent = clampPercent(s.ImpactPercent)
		out = append(out, s)
	}
	return out, len(out) > 0
}

var (
	BusinessAnalysisGrammar   = Grammar[BusinessAnalysisResult]{Name: "business_analysis", Parse: BusinessAnalysis}
	ContentSuggestionsGrammar = Grammar[[]ContentSuggestion]{Name: "content_suggestions", Parse: ContentSuggestions}
)

// clamp01 also folds percentages (1 < v <= 100) into [0,1].
func clamp01(v float64) float64 {
	if v > 1 && v <= 100 {
		v /= 100
	}
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
