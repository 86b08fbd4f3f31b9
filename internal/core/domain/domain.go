// Package domain defines the core entities of the filtering and dispatch engine:
// filter rules and their matching options, normalized text, match results, and the
// persisted records (sources, subscriptions, messages, forwards) they refer to.
//
// Entities here are independent of the storage layer. Validation that depends on a
// filter's mode lives on FilterConfig so that misconfigured rules are rejected at
// write time rather than silently coerced during matching.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceType classifies a Telegram chat being monitored.
type SourceType string

const (
	SourceChannel SourceType = "channel"
	SourceGroup   SourceType = "group"
	SourcePrivate SourceType = "private"
)

// ParseSourceType maps a free-form hint to a SourceType, defaulting to channel.
func ParseSourceType(v string) SourceType {
	switch SourceType(strings.ToLower(strings.TrimSpace(v))) {
	case SourceGroup:
		return SourceGroup
	case SourcePrivate:
		return SourcePrivate
	default:
		return SourceChannel
	}
}

// FilterMode selects which matchers a filter rule uses.
type FilterMode string

const (
	ModeKeywordOnly  FilterMode = "keyword_only"
	ModeSemanticOnly FilterMode = "semantic_only"
	ModeCombined     FilterMode = "combined"
)

// Valid reports whether the mode is one of the known values.
func (m FilterMode) Valid() bool {
	switch m {
	case ModeKeywordOnly, ModeSemanticOnly, ModeCombined:
		return true
	default:
		return false
	}
}

// MatchType records which matcher produced a match.
type MatchType string

const (
	MatchKeyword  MatchType = "keyword"
	MatchSemantic MatchType = "semantic"
	MatchCombined MatchType = "combined"
)

// ForwardStatus is the delivery state of a forwarded message.
//
// State machine: pending -> sent on successful delivery, pending -> failed on a
// delivery rejection. failed is terminal; retries happen by re-attempting delivery
// while the record is still pending.
type ForwardStatus string

const (
	ForwardPending ForwardStatus = "pending"
	ForwardSent    ForwardStatus = "sent"
	ForwardFailed  ForwardStatus = "failed"
)

// Language selects the language used for tokenization and lemmatization.
// LanguageAuto triggers best-effort detection.
type Language string

const (
	LanguageAuto    Language = "auto"
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

// Filter configuration errors.
var (
	ErrKeywordsRequired = errors.New("keywords are required for keyword_only mode")
	ErrTopicsRequired   = errors.New("topics are required for semantic_only mode")
	ErrEmptyCombined    = errors.New("either keywords or topics must be provided for combined mode")
	ErrInvalidMode      = errors.New("invalid filter mode")
	ErrInvalidThreshold = errors.New("semantic threshold must be between 0.0 and 1.0")
)

// KeywordOptions controls how keywords are matched in text.
type KeywordOptions struct {
	CaseSensitive    bool     `json:"case_sensitive"`
	WholeWord        bool     `json:"whole_word"`
	UseLemmatization bool     `json:"use_lemmatization"`
	Language         Language `json:"language"`
	MinKeywordLength int      `json:"min_keyword_length"`
}

// DefaultKeywordOptions returns options matching the documented defaults:
// case-insensitive, partial matches allowed, lemmatization on.
func DefaultKeywordOptions() KeywordOptions {
	return KeywordOptions{
		UseLemmatization: true,
		Language:         LanguageAuto,
		MinKeywordLength: 2,
	}
}

// EffectiveLemmatization reports whether lemmatization actually applies.
// Lemmatization implies lowercasing, so case-sensitive matching forces it off.
func (o KeywordOptions) EffectiveLemmatization() bool {
	return o.UseLemmatization && !o.CaseSensitive
}

// SemanticOptions controls semantic similarity matching.
type SemanticOptions struct {
	Threshold           float32  `json:"threshold"`
	UseCachedEmbeddings bool     `json:"use_cached_embeddings"`
	Language            Language `json:"language"`
}

// DefaultSemanticOptions returns options with the default 0.7 threshold.
func DefaultSemanticOptions() SemanticOptions {
	return SemanticOptions{
		Threshold:           0.7,
		UseCachedEmbeddings: true,
		Language:            LanguageAuto,
	}
}

// Validate checks the threshold range.
func (o SemanticOptions) Validate() error {
	if o.Threshold < 0 || o.Threshold > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidThreshold, o.Threshold)
	}

	return nil
}

// FilterConfig defines how a filter rule matches messages.
type FilterConfig struct {
	Mode               FilterMode      `json:"mode"`
	Keywords           []string        `json:"keywords"`
	Topics             []string        `json:"topics"`
	KeywordOptions     KeywordOptions  `json:"keyword_options"`
	SemanticOptions    SemanticOptions `json:"semantic_options"`
	RequireAllKeywords bool            `json:"require_all_keywords"`
}

// Normalize trims keywords and topics, drops empty entries, and removes duplicates
// case-insensitively while preserving order. Called before persisting a config.
func (c *FilterConfig) Normalize() {
	c.Keywords = dedupeFold(c.Keywords)
	c.Topics = dedupeFold(c.Topics)
}

// ValidateForMode checks the config invariants for its mode.
func (c *FilterConfig) ValidateForMode() error {
	switch c.Mode {
	case ModeKeywordOnly:
		if len(c.Keywords) == 0 {
			return ErrKeywordsRequired
		}
	case ModeSemanticOnly:
		if len(c.Topics) == 0 {
			return ErrTopicsRequired
		}
	case ModeCombined:
		if len(c.Keywords) == 0 && len(c.Topics) == 0 {
			return ErrEmptyCombined
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	return c.SemanticOptions.Validate()
}

func dedupeFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))

	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		out = append(out, item)
	}

	return out
}

// FilterRule is a user's named matching configuration.
type FilterRule struct {
	ID        int64
	UserID    int64
	Name      string
	IsActive  bool
	Config    FilterConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the rule's configuration against its mode.
func (r *FilterRule) Validate() error {
	return r.Config.ValidateForMode()
}

// NormalizedText is the derived, immutable result of normalizing a piece of text
// for one set of normalization parameters. It is cached per dispatch, not persisted.
type NormalizedText struct {
	Original   string
	Normalized string
	Tokens     []string
	Language   string
	Lemmas     []string
}

// IsEmpty reports whether normalization produced no usable text.
func (n NormalizedText) IsEmpty() bool {
	return strings.TrimSpace(n.Normalized) == ""
}

// KeywordMatch is the outcome of keyword matching against one text.
//
// MatchCount counts total occurrences for substring search but only distinct
// matched keywords for token-based search; Positions carries character offsets
// only for substring search.
type KeywordMatch struct {
	MatchedKeywords []string
	MatchCount      int
	Positions       map[string][]int
}

// HasMatch reports whether any keyword matched.
func (m KeywordMatch) HasMatch() bool {
	return m.MatchCount > 0
}

// SemanticMatch is the outcome of semantic matching against one text.
type SemanticMatch struct {
	MatchedTopics []string
	Scores        map[string]float32
	MaxScore      float32
}

// HasMatch reports whether any topic reached the threshold.
func (m SemanticMatch) HasMatch() bool {
	return len(m.MatchedTopics) > 0
}

// FilterMatchResult is the outcome of applying one filter rule to one message.
type FilterMatchResult struct {
	FilterID      int64
	MessageID     int64
	MatchType     MatchType
	Matched       bool
	KeywordMatch  *KeywordMatch
	SemanticMatch *SemanticMatch
	Score         float32
}

// Details returns a JSON-serializable summary of the match for persistence.
func (r FilterMatchResult) Details() map[string]any {
	details := map[string]any{
		"match_type": string(r.MatchType),
		"matched":    r.Matched,
		"score":      r.Score,
	}

	if r.KeywordMatch != nil {
		details["keyword_match"] = map[string]any{
			"matched_keywords": r.KeywordMatch.MatchedKeywords,
			"match_count":      r.KeywordMatch.MatchCount,
		}
	}

	if r.SemanticMatch != nil {
		details["semantic_match"] = map[string]any{
			"matched_topics": r.SemanticMatch.MatchedTopics,
			"max_score":      r.SemanticMatch.MaxScore,
		}
	}

	return details
}

// User is an end user of the bot. TargetChatID, when set, is the chat that
// matched messages are forwarded to.
type User struct {
	ID           int64
	TelegramID   int64
	Username     string
	FirstName    string
	LastName     string
	IsActive     bool
	IsAdmin      bool
	TargetChatID *int64
	CreatedAt    time.Time
}

// Source is an external chat being monitored for messages.
type Source struct {
	ID             int64
	TelegramChatID int64
	Title          string
	Username       string
	Type           SourceType
	IsActive       bool
	CreatedAt      time.Time
}

// Subscription is a user's opt-in to matches from a source.
type Subscription struct {
	ID       int64
	UserID   int64
	SourceID int64
	IsActive bool
	Priority int
}

// Message is a persisted incoming message, deduplicated on
// (telegram_message_id, chat_id).
type Message struct {
	ID                int64
	TelegramMessageID int64
	ChatID            int64
	SourceID          int64
	Text              string
	Date              time.Time
	Metadata          map[string]any
	IsProcessed       bool
}

// ForwardedMessage is one delivery attempt record for a (user, filter, message)
// match. ForwardedMessageID is nil until the copy has been delivered.
type ForwardedMessage struct {
	ID                 int64
	UserID             int64
	FilterID           int64
	MessageID          int64
	TargetChatID       int64
	ForwardedMessageID *int64
	Status             ForwardStatus
	Error              string
	CreatedAt          time.Time
	ForwardedAt        *time.Time
}

// IncomingMessage is the ephemeral dispatcher input produced by the platform
// client. NormalizedText may be precomputed by the reader; source hints are used
// only when the source is first seen.
type IncomingMessage struct {
	TelegramMessageID int64
	ChatID            int64
	Date              time.Time
	Text              string
	Metadata          map[string]any

	NormalizedText *NormalizedText

	SourceType     string
	SourceTitle    string
	SourceUsername string
}
