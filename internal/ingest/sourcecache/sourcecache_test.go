package sourcecache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/lueurxax/telegram-filter-bot/internal/core/errors"
)

type fakeRepo struct {
	ids   []int64
	err   error
	calls int
}

func (r *fakeRepo) GetActiveSourceChatIDs(_ context.Context) ([]int64, error) {
	r.calls++

	return r.ids, r.err
}

func TestRefreshReplacesSet(t *testing.T) {
	repo := &fakeRepo{ids: []int64{-100, -200}}
	c := New(repo, nil)

	require.NoError(t, c.Refresh(context.Background()))

	assert.True(t, c.IsAllowed(-100))
	assert.True(t, c.IsAllowed(-200))
	assert.False(t, c.IsAllowed(-300))
	assert.Equal(t, 2, c.Size())

	// A removed source disappears after the next refresh.
	repo.ids = []int64{-200}
	require.NoError(t, c.Refresh(context.Background()))

	assert.False(t, c.IsAllowed(-100))
	assert.True(t, c.IsAllowed(-200))
}

func TestRefreshSchemaNotReadyDegradesToEmpty(t *testing.T) {
	repo := &fakeRepo{
		ids: []int64{-100},
		err: coreerrors.ErrSchemaNotReady,
	}
	c := New(repo, nil)

	require.NoError(t, c.Refresh(context.Background()), "schema-not-ready is not an error")
	assert.Equal(t, 0, c.Size())
	assert.False(t, c.IsAllowed(-100))
}

func TestRefreshPropagatesOtherErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("connection refused")}
	c := New(repo, nil)

	assert.Error(t, c.Refresh(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	repo := &fakeRepo{ids: []int64{-100}}
	c := New(repo, nil)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, time.Millisecond)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, repo.calls, 1)
	assert.True(t, c.IsAllowed(-100))
}
