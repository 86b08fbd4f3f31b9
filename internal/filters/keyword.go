// Package filters implements keyword and semantic matching of messages
// against user filter rules, and the pipeline that combines both per rule.
package filters

import (
	"strings"
	"unicode"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/core/textnorm"
)

// MatchKeywords matches keywords against text under the given options.
//
// Token-based matching (whole word or lemmatization) counts each keyword at
// most once; substring matching counts every occurrence and records character
// positions. Callers may pass a precomputed NormalizedText to skip
// re-normalization.
func MatchKeywords(text string, keywords []string, opts domain.KeywordOptions, normalized *domain.NormalizedText) domain.KeywordMatch {
	match := domain.KeywordMatch{Positions: map[string][]int{}}

	if text == "" || len(keywords) == 0 {
		return match
	}

	prepared := textnorm.PrepareKeywords(keywords, !opts.CaseSensitive)
	if len(prepared) == 0 {
		return match
	}

	effLemma := opts.EffectiveLemmatization()

	if normalized == nil {
		n := textnorm.Normalize(text, textnorm.Options{
			Language:         opts.Language,
			Lowercase:        !opts.CaseSensitive,
			RemoveURLs:       true,
			RemoveMentions:   true,
			RemoveEmojis:     true,
			UseLemmatization: effLemma,
			MinTokenLength:   opts.MinKeywordLength,
		})
		normalized = &n
	}

	searchTokens := normalized.Tokens
	if effLemma && len(normalized.Lemmas) > 0 {
		searchTokens = normalized.Lemmas
	}

	for _, keyword := range prepared {
		if opts.WholeWord || effLemma {
			if MatchKeywordInTokens(searchTokens, keyword, opts.CaseSensitive) {
				match.MatchedKeywords = append(match.MatchedKeywords, keyword)
				match.MatchCount++
				// Exact positions are not tracked for token matches.
				match.Positions[keyword] = []int{}
			}

			continue
		}

		searchText := normalized.Normalized
		if opts.CaseSensitive {
			searchText = text
		}

		positions := matchKeywordSimple(searchText, keyword, opts.CaseSensitive, false)
		if len(positions) > 0 {
			match.MatchedKeywords = append(match.MatchedKeywords, keyword)
			match.MatchCount += len(positions)
			match.Positions[keyword] = positions
		}
	}

	return match
}

// MatchKeywordInTokens matches a keyword against a token sequence. Single-word
// keywords check set membership; multi-word keywords must appear as a
// contiguous token subsequence.
func MatchKeywordInTokens(tokens []string, keyword string, caseSensitive bool) bool {
	if len(tokens) == 0 || keyword == "" {
		return false
	}

	keywordTokens := strings.Fields(keyword)
	if len(keywordTokens) == 0 {
		return false
	}

	if !caseSensitive {
		lowered := make([]string, len(tokens))
		for i, t := range tokens {
			lowered[i] = strings.ToLower(t)
		}

		tokens = lowered

		for i, k := range keywordTokens {
			keywordTokens[i] = strings.ToLower(k)
		}
	}

	if len(keywordTokens) == 1 {
		for _, t := range tokens {
			if t == keywordTokens[0] {
				return true
			}
		}

		return false
	}

	for i := 0; i+len(keywordTokens) <= len(tokens); i++ {
		if tokensEqual(tokens[i:i+len(keywordTokens)], keywordTokens) {
			return true
		}
	}

	return false
}

func tokensEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// matchKeywordSimple finds all substring occurrences of keyword in text and
// optionally keeps only whole-word hits.
func matchKeywordSimple(text, keyword string, caseSensitive, wholeWord bool) []int {
	if text == "" || keyword == "" {
		return nil
	}

	searchText := text
	searchKeyword := keyword

	if !caseSensitive {
		searchText = strings.ToLower(text)
		searchKeyword = strings.ToLower(keyword)
	}

	var positions []int

	start := 0

	for {
		pos := strings.Index(searchText[start:], searchKeyword)
		if pos == -1 {
			break
		}

		positions = append(positions, start+pos)
		start += pos + 1
	}

	if wholeWord {
		filtered := positions[:0]

		for _, pos := range positions {
			if isWholeWordMatch(text, keyword, pos) {
				filtered = append(filtered, pos)
			}
		}

		positions = filtered
	}

	return positions
}

// isWholeWordMatch reports whether the occurrence at pos is bounded by
// non-word characters or the text edges on both sides.
func isWholeWordMatch(text, keyword string, pos int) bool {
	if pos < 0 || pos >= len(text) {
		return false
	}

	end := pos + len(keyword)

	if pos > 0 {
		before, _ := lastRune(text[:pos])
		if isWordRune(before) {
			return false
		}
	}

	if end < len(text) {
		after := firstRune(text[end:])
		if isWordRune(after) {
			return false
		}
	}

	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}

	return 0
}

func lastRune(s string) (rune, int) {
	var (
		r    rune
		size int
	)

	for i, rr := range s {
		r = rr
		size = i
	}

	return r, size
}

// KeywordScore scores a keyword match in [0,1], weighting distinct matched
// keywords twice as heavily as raw occurrence counts.
func KeywordScore(match domain.KeywordMatch) float32 {
	if !match.HasMatch() {
		return 0
	}

	unique := len(match.MatchedKeywords)
	total := match.MatchCount

	score := float32(unique*2+total) / float32(unique*2+total+1)
	if score > 1 {
		score = 1
	}

	return score
}

// MatchAllKeywords reports whether every configured keyword matched.
func MatchAllKeywords(match domain.KeywordMatch, keywords []string) bool {
	return match.HasMatch() && len(match.MatchedKeywords) == len(keywords)
}
