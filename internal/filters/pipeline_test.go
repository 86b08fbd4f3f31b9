package filters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
)

// stubEncoder maps texts onto two orthogonal unit vectors so similarity is
// either 1 (same bucket) or 0.
type stubEncoder struct{}

func (stubEncoder) Encode(_ context.Context, text string) ([]float32, error) {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "quantum") || strings.Contains(lowered, "python") {
		return []float32{1, 0}, nil
	}

	return []float32{0, 1}, nil
}

type errorEncoder struct{}

func (errorEncoder) Encode(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("encoder unavailable")
}

func newTestPipeline(enc interface {
	Encode(ctx context.Context, text string) ([]float32, error)
},
) *Pipeline {
	return NewPipeline(DefaultPipelineConfig(), NewMatcher(enc, nil), nil)
}

func rule(id int64, mode domain.FilterMode, keywords, topics []string) domain.FilterRule {
	cfg := domain.FilterConfig{
		Mode:            mode,
		Keywords:        keywords,
		Topics:          topics,
		KeywordOptions:  domain.KeywordOptions{Language: domain.LanguageAuto, MinKeywordLength: 2},
		SemanticOptions: domain.DefaultSemanticOptions(),
	}

	return domain.FilterRule{ID: id, UserID: 1, Name: "test", IsActive: true, Config: cfg}
}

func TestRunCombinedKeywordOnlyHit(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	// Topic "cooking" lands in the other embedding bucket, so only the
	// keyword side is satisfied.
	results := p.Run(context.Background(), "Python programming tutorial", 10,
		[]domain.FilterRule{rule(1, domain.ModeCombined, []string{"python"}, []string{"cooking"})}, nil)

	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, domain.MatchKeyword, results[0].MatchType)
	assert.Greater(t, results[0].Score, float32(0))
}

func TestRunSemanticOnlyHit(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	results := p.Run(context.Background(), "Quantum physics breakthrough", 10,
		[]domain.FilterRule{rule(1, domain.ModeSemanticOnly, nil, []string{"quantum physics"})}, nil)

	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchSemantic, results[0].MatchType)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestRunNoMatchReturnsNothing(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	results := p.Run(context.Background(), "Cooking pasta for dinner", 10,
		[]domain.FilterRule{rule(1, domain.ModeCombined, []string{"python"}, []string{"quantum physics"})}, nil)

	assert.Empty(t, results)
}

func TestRunCombinedBothSatisfied(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	results := p.Run(context.Background(), "Python programming tips", 10,
		[]domain.FilterRule{rule(1, domain.ModeCombined, []string{"python"}, []string{"python development"})}, nil)

	require.Len(t, results, 1)
	assert.Equal(t, domain.MatchCombined, results[0].MatchType)
	// Combined score is the max of the sub-scores; the semantic side hits 1.
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-5)
}

func TestRunRequireAllKeywords(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	r := rule(1, domain.ModeKeywordOnly, []string{"bitcoin", "ethereum"}, nil)
	r.Config.RequireAllKeywords = true

	results := p.Run(context.Background(), "bitcoin rallies again", 10, []domain.FilterRule{r}, nil)
	assert.Empty(t, results, "one missing keyword fails the rule")

	results = p.Run(context.Background(), "bitcoin and ethereum rally", 10, []domain.FilterRule{r}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
}

func TestRunSkipsInactiveRules(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	r := rule(1, domain.ModeKeywordOnly, []string{"python"}, nil)
	r.IsActive = false

	results := p.Run(context.Background(), "python tutorial", 10, []domain.FilterRule{r}, nil)
	assert.Empty(t, results)
}

func TestRunSortsByScoreDescending(t *testing.T) {
	p := newTestPipeline(stubEncoder{})

	rules := []domain.FilterRule{
		rule(1, domain.ModeKeywordOnly, []string{"python"}, nil),
		rule(2, domain.ModeSemanticOnly, nil, []string{"python development"}),
	}

	results := p.Run(context.Background(), "python python", 10, rules, nil)

	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	// The semantic rule scores 1.0 and must come first.
	assert.Equal(t, int64(2), results[0].FilterID)
}

func TestRunEncoderFailureDegradesToKeywordResult(t *testing.T) {
	p := newTestPipeline(errorEncoder{})

	results := p.Run(context.Background(), "Python programming tutorial", 10,
		[]domain.FilterRule{rule(1, domain.ModeCombined, []string{"python"}, []string{"programming"})}, nil)

	require.Len(t, results, 1, "keyword side still matches when the encoder is down")
	assert.Equal(t, domain.MatchKeyword, results[0].MatchType)
}

func TestRunEncoderFailureSemanticOnlyNoMatch(t *testing.T) {
	p := newTestPipeline(errorEncoder{})

	results := p.Run(context.Background(), "Quantum physics breakthrough", 10,
		[]domain.FilterRule{rule(1, domain.ModeSemanticOnly, nil, []string{"quantum physics"})}, nil)

	assert.Empty(t, results)
}

func TestRunTruncatesLongText(t *testing.T) {
	cfg := DefaultPipelineConfig()
	cfg.MaxMessageLength = 20
	p := NewPipeline(cfg, NewMatcher(stubEncoder{}, nil), nil)

	// The keyword sits beyond the truncation boundary.
	text := strings.Repeat("a", 25) + " python"

	results := p.Run(context.Background(), text, 10,
		[]domain.FilterRule{rule(1, domain.ModeKeywordOnly, []string{"python"}, nil)}, nil)

	assert.Empty(t, results)
}

func TestCombineNeitherSatisfied(t *testing.T) {
	matched, matchType, score := combine(domain.ModeKeywordOnly, false, false, 0, 0)
	assert.False(t, matched)
	assert.Equal(t, domain.MatchKeyword, matchType)
	assert.Zero(t, score)

	_, matchType, _ = combine(domain.ModeSemanticOnly, false, false, 0, 0)
	assert.Equal(t, domain.MatchSemantic, matchType)

	_, matchType, _ = combine(domain.ModeCombined, false, false, 0, 0)
	assert.Equal(t, domain.MatchCombined, matchType)
}

func TestMatchTopicsScoresAndThreshold(t *testing.T) {
	m := NewMatcher(stubEncoder{}, nil)

	match := m.MatchTopics(context.Background(), "python news", []string{"python development", "cooking"}, 0.7)

	require.True(t, match.HasMatch())
	assert.Equal(t, []string{"python development"}, match.MatchedTopics)
	assert.InDelta(t, 1.0, float64(match.Scores["python development"]), 1e-5)
	assert.InDelta(t, 0.0, float64(match.Scores["cooking"]), 1e-5)
	assert.InDelta(t, 1.0, float64(match.MaxScore), 1e-5)

	for _, score := range match.Scores {
		assert.GreaterOrEqual(t, score, float32(0))
		assert.LessOrEqual(t, score, float32(1))
	}
}

func TestMatchTopicsMaxScoreBelowThreshold(t *testing.T) {
	m := NewMatcher(stubEncoder{}, nil)

	match := m.MatchTopics(context.Background(), "gardening tips", []string{"quantum physics"}, 0.7)

	assert.False(t, match.HasMatch())
	assert.Empty(t, match.MatchedTopics)
	// MaxScore is tracked regardless of the threshold.
	assert.InDelta(t, 0.0, float64(match.MaxScore), 1e-5)
}

func TestMatchTextsToTopicsBatch(t *testing.T) {
	m := NewMatcher(stubEncoder{}, nil)

	results := m.MatchTextsToTopics(context.Background(),
		[]string{"python release", "pasta recipe"},
		[]string{"python development"}, 0.7)

	require.Len(t, results, 2)
	assert.True(t, results[0].HasMatch())
	assert.False(t, results[1].HasMatch())
}

func TestMatchTopicsEncoderFailure(t *testing.T) {
	m := NewMatcher(errorEncoder{}, nil)

	match := m.MatchTopics(context.Background(), "anything", []string{"topic"}, 0.5)

	assert.False(t, match.HasMatch())
	assert.Empty(t, match.Scores)
	assert.Zero(t, match.MaxScore)
}
