package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
)

type failingEncoder struct{}

func (failingEncoder) Encode(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("encoder down")
}

type fakeTopicStore struct {
	vectors map[string][]float32
	getErr  error
	saveErr error

	gets  int
	saves int
}

func newFakeTopicStore() *fakeTopicStore {
	return &fakeTopicStore{vectors: map[string][]float32{}}
}

func (f *fakeTopicStore) GetTopicEmbedding(_ context.Context, model, topic string) ([]float32, error) {
	f.gets++

	if f.getErr != nil {
		return nil, f.getErr
	}

	vec, ok := f.vectors[model+"/"+topic]
	if !ok {
		return nil, coreerrors.ErrNotFound
	}

	return vec, nil
}

func (f *fakeTopicStore) SaveTopicEmbedding(_ context.Context, model, topic string, embedding []float32) error {
	f.saves++

	if f.saveErr != nil {
		return f.saveErr
	}

	f.vectors[model+"/"+topic] = embedding

	return nil
}

func TestStoreCacheMissEncodesAndSaves(t *testing.T) {
	store := newFakeTopicStore()
	cache := NewStoreCache(NewMockProviderWithDimensions(8), store, "test-model", nil)

	vec, err := cache.Encode(context.Background(), "quantum physics")
	require.NoError(t, err)
	require.Len(t, vec, 8)

	assert.Equal(t, 1, store.gets)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, vec, store.vectors["test-model/quantum physics"])
}

func TestStoreCacheHitSkipsEncoder(t *testing.T) {
	store := newFakeTopicStore()
	store.vectors["test-model/quantum physics"] = []float32{1, 0, 0}

	cache := NewStoreCache(failingEncoder{}, store, "test-model", nil)

	vec, err := cache.Encode(context.Background(), "quantum physics")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Zero(t, store.saves)
}

func TestStoreCacheLookupErrorFallsThrough(t *testing.T) {
	store := newFakeTopicStore()
	store.getErr = errors.New("connection refused")

	cache := NewStoreCache(NewMockProviderWithDimensions(8), store, "test-model", nil)

	vec, err := cache.Encode(context.Background(), "topic")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
}

func TestStoreCacheSaveErrorIgnored(t *testing.T) {
	store := newFakeTopicStore()
	store.saveErr = errors.New("read-only transaction")

	cache := NewStoreCache(NewMockProviderWithDimensions(8), store, "test-model", nil)

	_, err := cache.Encode(context.Background(), "topic")
	require.NoError(t, err)
}

func TestStoreCacheEncoderErrorPropagates(t *testing.T) {
	cache := NewStoreCache(failingEncoder{}, newFakeTopicStore(), "test-model", nil)

	_, err := cache.Encode(context.Background(), "topic")
	require.Error(t, err)
}
