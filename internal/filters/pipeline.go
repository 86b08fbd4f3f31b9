package filters

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/core/textnorm"
)

// DefaultMaxMessageLength bounds the text fed into matching.
const DefaultMaxMessageLength = 4096

// PipelineConfig holds runtime pipeline switches.
type PipelineConfig struct {
	EnableKeyword    bool
	EnableSemantic   bool
	MaxMessageLength int
}

// DefaultPipelineConfig enables both matchers with the default length cap.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EnableKeyword:    true,
		EnableSemantic:   true,
		MaxMessageLength: DefaultMaxMessageLength,
	}
}

// Pipeline evaluates filter rules against message text, combining keyword and
// semantic sub-results per rule mode.
type Pipeline struct {
	cfg      PipelineConfig
	semantic *Matcher
	logger   *zerolog.Logger
}

// NewPipeline creates a pipeline. The semantic matcher may be nil when
// semantic matching is disabled.
func NewPipeline(cfg PipelineConfig, semantic *Matcher, logger *zerolog.Logger) *Pipeline {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}

	return &Pipeline{cfg: cfg, semantic: semantic, logger: logger}
}

// Run evaluates text against all rules and returns only matched results,
// sorted by score descending. Text is truncated once before any matching.
func (p *Pipeline) Run(ctx context.Context, text string, messageID int64, rules []domain.FilterRule, normalized *domain.NormalizedText) []domain.FilterMatchResult {
	text = truncateRunes(text, p.cfg.MaxMessageLength)

	cache := newNormalizerCache(text)

	var out []domain.FilterMatchResult

	for i := range rules {
		if !rules[i].IsActive {
			continue
		}

		res := p.apply(ctx, text, messageID, rules[i], normalized, cache)
		if res.Matched {
			out = append(out, res)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	if p.logger != nil {
		p.logger.Debug().
			Int64("message_id", messageID).
			Int("rules", len(rules)).
			Int("matched", len(out)).
			Msg("pipeline finished")
	}

	return out
}

// Apply evaluates one rule against text. Unlike Run, unmatched results are
// returned too, with Matched false and a zero score.
func (p *Pipeline) Apply(ctx context.Context, text string, messageID int64, rule domain.FilterRule, normalized *domain.NormalizedText) domain.FilterMatchResult {
	text = truncateRunes(text, p.cfg.MaxMessageLength)

	return p.apply(ctx, text, messageID, rule, normalized, newNormalizerCache(text))
}

func (p *Pipeline) apply(ctx context.Context, text string, messageID int64, rule domain.FilterRule, normalized *domain.NormalizedText, cache *normalizerCache) domain.FilterMatchResult {
	cfg := rule.Config

	doKeyword := p.cfg.EnableKeyword && rule.IsActive && len(cfg.Keywords) > 0 &&
		(cfg.Mode == domain.ModeKeywordOnly || cfg.Mode == domain.ModeCombined)
	doSemantic := p.cfg.EnableSemantic && p.semantic != nil && rule.IsActive && len(cfg.Topics) > 0 &&
		(cfg.Mode == domain.ModeSemanticOnly || cfg.Mode == domain.ModeCombined)

	var (
		keywordMatch  *domain.KeywordMatch
		semanticMatch *domain.SemanticMatch

		keywordSatisfied, semanticSatisfied bool
		keywordScore, semanticScore         float32
	)

	if doKeyword {
		kwNorm := cache.forKeywords(cfg.KeywordOptions)
		km := MatchKeywords(text, cfg.Keywords, cfg.KeywordOptions, kwNorm)
		keywordMatch = &km
		keywordSatisfied = keywordRequirementSatisfied(cfg, km)
		keywordScore = KeywordScore(km)
	}

	if doSemantic {
		semNorm := normalized
		if semNorm == nil || semNorm.IsEmpty() {
			semNorm = cache.forSemantic(cfg.SemanticOptions)
		}

		matchText := text
		if semNorm != nil && !semNorm.IsEmpty() {
			matchText = semNorm.Normalized
		}

		sm := p.semantic.MatchTopicsWithOptions(ctx, matchText, cfg.Topics, cfg.SemanticOptions)
		semanticMatch = &sm
		semanticSatisfied = sm.HasMatch()
		semanticScore = SemanticScore(sm)
	}

	matched, matchType, score := combine(cfg.Mode, keywordSatisfied, semanticSatisfied, keywordScore, semanticScore)

	return domain.FilterMatchResult{
		FilterID:      rule.ID,
		MessageID:     messageID,
		MatchType:     matchType,
		Matched:       matched,
		KeywordMatch:  keywordMatch,
		SemanticMatch: semanticMatch,
		Score:         score,
	}
}

// keywordRequirementSatisfied checks the rule's keyword requirement. With
// require_all_keywords every configured keyword must have matched, compared by
// count since matched keywords carry normalized forms.
func keywordRequirementSatisfied(cfg domain.FilterConfig, match domain.KeywordMatch) bool {
	if !match.HasMatch() {
		return false
	}

	if cfg.RequireAllKeywords {
		return len(match.MatchedKeywords) == len(cfg.Keywords)
	}

	return true
}

// combine resolves the match outcome for one rule mode. The neither-satisfied
// branch is unobservable through Run but stays deterministic: the match type
// falls back to the rule's mode.
func combine(mode domain.FilterMode, kwSat, semSat bool, kwScore, semScore float32) (bool, domain.MatchType, float32) {
	var matched bool

	switch mode {
	case domain.ModeKeywordOnly:
		matched = kwSat
	case domain.ModeSemanticOnly:
		matched = semSat
	case domain.ModeCombined:
		matched = kwSat || semSat
	}

	switch {
	case kwSat && semSat:
		return matched, domain.MatchCombined, maxScore(kwScore, semScore)
	case kwSat:
		return matched, domain.MatchKeyword, kwScore
	case semSat:
		return matched, domain.MatchSemantic, semScore
	}

	switch mode {
	case domain.ModeKeywordOnly:
		return false, domain.MatchKeyword, 0
	case domain.ModeSemanticOnly:
		return false, domain.MatchSemantic, 0
	default:
		return false, domain.MatchCombined, 0
	}
}

func maxScore(a, b float32) float32 {
	if a > b {
		return a
	}

	return b
}

func truncateRunes(text string, maxLen int) string {
	if maxLen <= 0 {
		return text
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	return string(runes[:maxLen])
}

// normalizerCache memoizes NormalizedText per normalization parameter set for
// one piece of text, so rules sharing options do not re-normalize.
type normalizerCache struct {
	text    string
	entries map[normKey]*domain.NormalizedText
}

type normKey struct {
	kind      string
	language  domain.Language
	lowercase bool
	lemma     bool
	minLength int
}

func newNormalizerCache(text string) *normalizerCache {
	return &normalizerCache{
		text:    text,
		entries: map[normKey]*domain.NormalizedText{},
	}
}

func (c *normalizerCache) forKeywords(opts domain.KeywordOptions) *domain.NormalizedText {
	key := normKey{
		kind:      "kw",
		language:  opts.Language,
		lowercase: !opts.CaseSensitive,
		lemma:     opts.EffectiveLemmatization(),
		minLength: opts.MinKeywordLength,
	}

	if cached, ok := c.entries[key]; ok {
		return cached
	}

	norm := textnorm.Normalize(c.text, textnorm.Options{
		Language:         opts.Language,
		Lowercase:        !opts.CaseSensitive,
		RemoveURLs:       true,
		RemoveMentions:   true,
		RemoveEmojis:     true,
		UseLemmatization: opts.EffectiveLemmatization(),
		MinTokenLength:   opts.MinKeywordLength,
	})
	c.entries[key] = &norm

	return &norm
}

func (c *normalizerCache) forSemantic(opts domain.SemanticOptions) *domain.NormalizedText {
	// Semantic matching only consumes the normalized string, so lemmas are
	// unnecessary and a minimal token length is enough.
	key := normKey{kind: "sem", language: opts.Language, lowercase: true, minLength: 1}

	if cached, ok := c.entries[key]; ok {
		return cached
	}

	norm := textnorm.Normalize(c.text, textnorm.Options{
		Language:       opts.Language,
		Lowercase:      true,
		RemoveURLs:     true,
		RemoveMentions: true,
		RemoveEmojis:   true,
		MinTokenLength: 1,
	})
	c.entries[key] = &norm

	return &norm
}
