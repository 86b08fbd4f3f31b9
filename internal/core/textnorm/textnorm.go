// Package textnorm cleans and tokenizes message and keyword text for matching.
//
// Normalization strips URLs, mentions, emoji and control characters, collapses
// punctuation and whitespace, lowercases (unless disabled), tokenizes on word
// boundaries, and optionally lemmatizes tokens per language. The result is
// deterministic for a given (text, options) pair and safe to cache.
package textnorm

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// Fold lowercases text using full Unicode case folding, so caseless matching
// treats variants like the Kelvin sign or dotted capitals as their plain
// lowercase forms. Casers are stateful, so one is created per call.
func Fold(text string) string {
	return cases.Fold().String(text)
}

// Options configures one normalization pass.
type Options struct {
	Language         domain.Language
	Lowercase        bool
	RemoveURLs       bool
	RemoveMentions   bool
	RemoveEmojis     bool
	UseLemmatization bool
	MinTokenLength   int
}

// DefaultOptions returns the options used for message-level normalization.
func DefaultOptions() Options {
	return Options{
		Language:         domain.LanguageAuto,
		Lowercase:        true,
		RemoveURLs:       true,
		RemoveEmojis:     true,
		UseLemmatization: true,
		MinTokenLength:   2,
	}
}

var (
	reHTTPURL     = regexp.MustCompile(`https?://\S+`)
	reWWWURL      = regexp.MustCompile(`www\.\S+`)
	reTMeURL      = regexp.MustCompile(`t\.me/\S+`)
	reMention     = regexp.MustCompile(`@\w+`)
	reControlChar = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	rePunctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	reToken       = regexp.MustCompile(`[\p{L}\p{N}_]+`)
)

// CleanText removes URLs, mentions and control characters and collapses
// whitespace. It does not change casing.
func CleanText(text string, removeURLs, removeMentions bool) string {
	if text == "" {
		return ""
	}

	if removeURLs {
		text = reHTTPURL.ReplaceAllString(text, " ")
		text = reWWWURL.ReplaceAllString(text, " ")
		text = reTMeURL.ReplaceAllString(text, " ")
	}

	if removeMentions {
		text = reMention.ReplaceAllString(text, " ")
	}

	text = reControlChar.ReplaceAllString(text, " ")

	return NormalizeWhitespace(text)
}

// NormalizeWhitespace collapses whitespace runs to a single space and trims.
func NormalizeWhitespace(text string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// RemoveEmojis strips emoji and pictographic symbols.
func RemoveEmojis(text string) string {
	var b strings.Builder

	b.Grow(len(text))

	for _, r := range text {
		if isEmoji(r) {
			b.WriteRune(' ')
			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

// isEmoji covers the common emoji and pictograph ranges.
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F600 && r <= 0x1F64F, // emoticons
		r >= 0x1F300 && r <= 0x1F5FF, // symbols & pictographs
		r >= 0x1F680 && r <= 0x1F6FF, // transport & map symbols
		r >= 0x1F1E0 && r <= 0x1F1FF, // flags
		r >= 0x1F900 && r <= 0x1F9FF, // supplemental symbols
		r >= 0x1FA00 && r <= 0x1FAFF, // extended pictographs
		r >= 0x2600 && r <= 0x27BF, // misc symbols and dingbats
		r >= 0xFE00 && r <= 0xFE0F, // variation selectors
		r == 0x200D: // zero-width joiner
		return true
	default:
		return false
	}
}

// Tokenize splits text on non-word characters and drops tokens shorter than
// minLength.
func Tokenize(text string, minLength int) []string {
	if text == "" {
		return nil
	}

	raw := reToken.FindAllString(text, -1)
	if minLength <= 1 {
		return raw
	}

	tokens := raw[:0]

	for _, t := range raw {
		if len([]rune(t)) >= minLength {
			tokens = append(tokens, t)
		}
	}

	return tokens
}

// Normalize runs the full normalization pass: language detection (when AUTO),
// cleaning, casing, tokenization and optional lemmatization. Empty input yields
// an empty, non-error result.
func Normalize(text string, opts Options) domain.NormalizedText {
	if text == "" {
		return domain.NormalizedText{Original: text}
	}

	lang := string(opts.Language)
	if opts.Language == domain.LanguageAuto || opts.Language == "" {
		lang = DetectLanguage(text)
	}

	cleaned := CleanText(text, opts.RemoveURLs, opts.RemoveMentions)

	if opts.RemoveEmojis {
		cleaned = RemoveEmojis(cleaned)
	}

	// Collapse punctuation to whitespace so "Hello, World!" tokenizes the same
	// as "Hello World".
	cleaned = rePunctuation.ReplaceAllString(cleaned, " ")
	cleaned = NormalizeWhitespace(cleaned)

	normalized := cleaned
	if opts.Lowercase {
		normalized = Fold(cleaned)
	}

	tokens := Tokenize(normalized, opts.MinTokenLength)

	var lemmas []string
	if opts.UseLemmatization && len(tokens) > 0 {
		lemmas = Lemmatize(tokens, lang)
	}

	return domain.NormalizedText{
		Original:   text,
		Normalized: normalized,
		Tokens:     tokens,
		Language:   lang,
		Lemmas:     lemmas,
	}
}

// PrepareKeyword trims a keyword and lowercases it unless case-sensitive
// matching was requested.
func PrepareKeyword(keyword string, lowercase bool) string {
	keyword = strings.TrimSpace(keyword)
	if lowercase {
		keyword = Fold(keyword)
	}

	return keyword
}

// PrepareKeywords prepares a keyword list for matching: trim, optional
// lowercase, drop empties, and remove duplicates preserving order.
func PrepareKeywords(keywords []string, lowercase bool) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))

	for _, kw := range keywords {
		kw = PrepareKeyword(kw, lowercase)
		if kw == "" {
			continue
		}

		if _, ok := seen[kw]; ok {
			continue
		}

		seen[kw] = struct{}{}

		out = append(out, kw)
	}

	return out
}
