package filters

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/core/embeddings"
)

// Matcher performs semantic topic matching via an embedding encoder.
//
// Matching is best-effort relative to keyword matching: any encoder failure
// degrades to an empty non-matching result instead of propagating.
type Matcher struct {
	encoder embeddings.Encoder

	// topicEncoder, when set, serves topic vectors for rules that request
	// cached embeddings. Typically a persistent StoreCache.
	topicEncoder embeddings.Encoder

	logger *zerolog.Logger
}

// NewMatcher creates a semantic matcher over the given encoder.
func NewMatcher(encoder embeddings.Encoder, logger *zerolog.Logger) *Matcher {
	return &Matcher{encoder: encoder, logger: logger}
}

// SetTopicEncoder attaches an encoder used for topic vectors when a rule
// requests cached embeddings.
func (m *Matcher) SetTopicEncoder(encoder embeddings.Encoder) {
	m.topicEncoder = encoder
}

// MatchTopics scores text against each topic with cosine similarity and
// returns the topics at or above threshold. MaxScore covers all topics
// regardless of threshold.
func (m *Matcher) MatchTopics(ctx context.Context, text string, topics []string, threshold float32) domain.SemanticMatch {
	return m.MatchTopicsWithOptions(ctx, text, topics, domain.SemanticOptions{Threshold: threshold})
}

// MatchTopicsWithOptions is MatchTopics with per-rule semantic options
// applied, including the persistent topic-embedding cache.
func (m *Matcher) MatchTopicsWithOptions(ctx context.Context, text string, topics []string, opts domain.SemanticOptions) domain.SemanticMatch {
	match := domain.SemanticMatch{Scores: map[string]float32{}}

	if text == "" || len(topics) == 0 {
		return match
	}

	threshold := opts.Threshold

	topicEncoder := m.encoder
	if opts.UseCachedEmbeddings && m.topicEncoder != nil {
		topicEncoder = m.topicEncoder
	}

	textVec, err := m.encoder.Encode(ctx, text)
	if err != nil {
		m.logDegraded(err, "text encoding failed, skipping semantic match")

		return match
	}

	for _, topic := range topics {
		topicVec, err := topicEncoder.Encode(ctx, topic)
		if err != nil {
			m.logDegraded(err, "topic encoding failed, skipping topic")

			continue
		}

		score := embeddings.CosineSimilarity(textVec, topicVec)
		match.Scores[topic] = score

		if score > match.MaxScore {
			match.MaxScore = score
		}

		if score >= threshold {
			match.MatchedTopics = append(match.MatchedTopics, topic)
		}
	}

	return match
}

// MatchTextsToTopics evaluates several texts against one topic set, encoding
// each topic once. Results are positionally aligned with texts.
func (m *Matcher) MatchTextsToTopics(ctx context.Context, texts, topics []string, threshold float32) []domain.SemanticMatch {
	results := make([]domain.SemanticMatch, len(texts))
	for i := range results {
		results[i] = domain.SemanticMatch{Scores: map[string]float32{}}
	}

	if len(texts) == 0 || len(topics) == 0 {
		return results
	}

	topicVecs := make(map[string][]float32, len(topics))

	for _, topic := range topics {
		vec, err := m.encoder.Encode(ctx, topic)
		if err != nil {
			m.logDegraded(err, "topic encoding failed, skipping topic")

			continue
		}

		topicVecs[topic] = vec
	}

	for i, text := range texts {
		if text == "" {
			continue
		}

		textVec, err := m.encoder.Encode(ctx, text)
		if err != nil {
			m.logDegraded(err, "text encoding failed, skipping semantic match")

			continue
		}

		for _, topic := range topics {
			topicVec, ok := topicVecs[topic]
			if !ok {
				continue
			}

			score := embeddings.CosineSimilarity(textVec, topicVec)
			results[i].Scores[topic] = score

			if score > results[i].MaxScore {
				results[i].MaxScore = score
			}

			if score >= threshold {
				results[i].MatchedTopics = append(results[i].MatchedTopics, topic)
			}
		}
	}

	return results
}

func (m *Matcher) logDegraded(err error, msg string) {
	if m.logger != nil {
		m.logger.Warn().Err(err).Msg(msg)
	}
}

// SemanticScore scores a semantic match: the max topic score when any topic
// reached the threshold, zero otherwise.
func SemanticScore(match domain.SemanticMatch) float32 {
	if !match.HasMatch() {
		return 0
	}

	return match.MaxScore
}
