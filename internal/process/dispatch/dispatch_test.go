package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/telegram-filter-bot/internal/core/domain"
	"github.com/lueurxax/telegram-filter-bot/internal/filters"
)

type fakeRepo struct {
	sources     map[int64]*domain.Source
	messages    map[[2]int64]*domain.Message
	subs        map[int64][]domain.Subscription
	users       map[int64]*domain.User
	userFilters map[int64][]domain.FilterRule
	matches     map[[2]int64]int64
	forwards    []*domain.ForwardedMessage
	processed   map[int64]bool

	matchErr   error
	forwardErr error

	nextMessageID int64
	nextMatchID   int64
	nextForwardID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		sources:     map[int64]*domain.Source{},
		messages:    map[[2]int64]*domain.Message{},
		subs:        map[int64][]domain.Subscription{},
		users:       map[int64]*domain.User{},
		userFilters: map[int64][]domain.FilterRule{},
		matches:     map[[2]int64]int64{},
		processed:   map[int64]bool{},
	}
}

func (f *fakeRepo) GetOrCreateSource(_ context.Context, chatID int64, title, username string, sourceType domain.SourceType) (*domain.Source, bool, error) {
	if s, ok := f.sources[chatID]; ok {
		return s, false, nil
	}

	s := &domain.Source{ID: chatID, TelegramChatID: chatID, Title: title, Username: username, Type: sourceType, IsActive: true}
	f.sources[chatID] = s

	return s, true, nil
}

func (f *fakeRepo) GetOrCreateMessage(_ context.Context, msg *domain.IncomingMessage, sourceID int64) (*domain.Message, bool, error) {
	key := [2]int64{msg.TelegramMessageID, msg.ChatID}
	if m, ok := f.messages[key]; ok {
		return m, false, nil
	}

	f.nextMessageID++
	m := &domain.Message{
		ID:                f.nextMessageID,
		TelegramMessageID: msg.TelegramMessageID,
		ChatID:            msg.ChatID,
		SourceID:          sourceID,
		Text:              msg.Text,
	}
	f.messages[key] = m

	return m, true, nil
}

func (f *fakeRepo) MarkMessageProcessed(_ context.Context, messageID int64) error {
	f.processed[messageID] = true

	return nil
}

func (f *fakeRepo) GetSourceSubscribers(_ context.Context, sourceID int64) ([]domain.Subscription, error) {
	return f.subs[sourceID], nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}

	return u, nil
}

func (f *fakeRepo) GetUserFilters(_ context.Context, userID int64) ([]domain.FilterRule, error) {
	return f.userFilters[userID], nil
}

func (f *fakeRepo) GetOrCreateMatch(_ context.Context, result domain.FilterMatchResult) (int64, bool, error) {
	if f.matchErr != nil {
		return 0, false, f.matchErr
	}

	key := [2]int64{result.MessageID, result.FilterID}
	if id, ok := f.matches[key]; ok {
		return id, false, nil
	}

	f.nextMatchID++
	f.matches[key] = f.nextMatchID

	return f.nextMatchID, true, nil
}

func (f *fakeRepo) CreateForward(_ context.Context, userID, filterID, messageID, targetChatID int64) (*domain.ForwardedMessage, error) {
	if f.forwardErr != nil {
		return nil, f.forwardErr
	}

	f.nextForwardID++
	fwd := &domain.ForwardedMessage{
		ID:           f.nextForwardID,
		UserID:       userID,
		FilterID:     filterID,
		MessageID:    messageID,
		TargetChatID: targetChatID,
		Status:       domain.ForwardPending,
	}
	f.forwards = append(f.forwards, fwd)

	return fwd, nil
}

func (f *fakeRepo) MarkForwardSent(_ context.Context, forwardID, deliveredMessageID int64) error {
	for _, fwd := range f.forwards {
		if fwd.ID == forwardID {
			fwd.Status = domain.ForwardSent
			fwd.ForwardedMessageID = &deliveredMessageID
		}
	}

	return nil
}

func (f *fakeRepo) MarkForwardFailed(_ context.Context, forwardID int64, errText string) error {
	for _, fwd := range f.forwards {
		if fwd.ID == forwardID {
			fwd.Status = domain.ForwardFailed
			fwd.Error = errText
		}
	}

	return nil
}

type fakeForwarder struct {
	err   error
	calls int
}

func (f *fakeForwarder) Forward(_ context.Context, _, _, _ int64) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}

	return int64(9000 + f.calls), nil
}

func keywordRule(id, userID int64, keywords ...string) domain.FilterRule {
	return domain.FilterRule{
		ID:       id,
		UserID:   userID,
		Name:     "rule",
		IsActive: true,
		Config: domain.FilterConfig{
			Mode:     domain.ModeKeywordOnly,
			Keywords: keywords,
		},
	}
}

func newDispatcher(repo Repository, fwd Forwarder) *Dispatcher {
	logger := zerolog.Nop()
	pipeline := filters.NewPipeline(filters.PipelineConfig{EnableKeyword: true, MaxMessageLength: 4096}, nil, &logger)

	return New(repo, pipeline, fwd, &logger)
}

func incomingMessage() *domain.IncomingMessage {
	return &domain.IncomingMessage{
		TelegramMessageID: 42,
		ChatID:            -100,
		Text:              "breaking python release announced",
		SourceTitle:       "Tech News",
		SourceType:        "channel",
	}
}

func seedSubscriber(repo *fakeRepo, userID int64, target *int64, rules ...domain.FilterRule) {
	repo.subs[-100] = append(repo.subs[-100], domain.Subscription{UserID: userID, SourceID: -100, IsActive: true})
	repo.users[userID] = &domain.User{ID: userID, IsActive: true, TargetChatID: target}
	repo.userFilters[userID] = rules
}

func TestDispatchCreatesMatchAndForward(t *testing.T) {
	repo := newFakeRepo()

	target := int64(555)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))

	res, err := newDispatcher(repo, nil).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Equal(t, []int64{10}, res.MatchedFilters)
	assert.Equal(t, 1, res.MatchesCreated)
	assert.Equal(t, 1, res.ForwardsCreated)
	assert.Equal(t, 0, res.ForwardsSent)

	require.Len(t, repo.forwards, 1)
	assert.Equal(t, domain.ForwardPending, repo.forwards[0].Status)
	assert.Equal(t, target, repo.forwards[0].TargetChatID)
	assert.True(t, repo.processed[res.MessageID])
}

func TestDispatchIdempotent(t *testing.T) {
	repo := newFakeRepo()

	target := int64(555)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))

	d := newDispatcher(repo, nil)

	first, err := d.Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)
	require.Equal(t, 1, first.MatchesCreated)

	second, err := d.Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Equal(t, first.MessageID, second.MessageID)
	assert.Equal(t, 0, second.MatchesCreated, "second dispatch must not duplicate matches")
	assert.Equal(t, 0, second.ForwardsCreated, "second dispatch must not duplicate forwards")
	assert.Len(t, repo.matches, 1)
	require.Len(t, repo.forwards, 1, "re-dispatch must not enqueue a second delivery")
	assert.Equal(t, domain.ForwardPending, repo.forwards[0].Status)
}

func TestDispatchFansOutToAllSubscribers(t *testing.T) {
	repo := newFakeRepo()

	target := int64(1)
	seedSubscriber(repo, 1, &target, keywordRule(10, 1, "python"))
	seedSubscriber(repo, 2, nil, keywordRule(20, 2, "python"), keywordRule(21, 2, "golang"))
	seedSubscriber(repo, 3, &target, keywordRule(30, 3, "rust"))

	res, err := newDispatcher(repo, nil).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.ElementsMatch(t, []int64{10, 20}, res.MatchedFilters)
	assert.Equal(t, 2, res.MatchesCreated)
	// user 2 has no target chat, so only user 1 gets a forward record
	assert.Equal(t, 1, res.ForwardsCreated)
}

func TestDispatchSkipsInactiveUser(t *testing.T) {
	repo := newFakeRepo()

	target := int64(1)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))
	repo.users[7].IsActive = false

	res, err := newDispatcher(repo, nil).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Empty(t, res.MatchedFilters)
	assert.Equal(t, 0, res.MatchesCreated)
}

func TestDispatchSyncForwarderSent(t *testing.T) {
	repo := newFakeRepo()

	target := int64(555)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))

	fwd := &fakeForwarder{}

	res, err := newDispatcher(repo, fwd).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ForwardsSent)
	assert.Equal(t, 1, fwd.calls)

	require.Len(t, repo.forwards, 1)
	assert.Equal(t, domain.ForwardSent, repo.forwards[0].Status)
	require.NotNil(t, repo.forwards[0].ForwardedMessageID)
}

func TestDispatchSyncForwarderFailure(t *testing.T) {
	repo := newFakeRepo()

	target := int64(555)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))

	fwd := &fakeForwarder{err: errors.New("chat not found")}

	res, err := newDispatcher(repo, fwd).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Equal(t, 1, res.ForwardsCreated)
	assert.Equal(t, 0, res.ForwardsSent)

	require.Len(t, repo.forwards, 1)
	assert.Equal(t, domain.ForwardFailed, repo.forwards[0].Status)
	assert.Equal(t, "chat not found", repo.forwards[0].Error)
}

func TestDispatchToleratesMatchPersistenceFailure(t *testing.T) {
	repo := newFakeRepo()

	target := int64(555)
	seedSubscriber(repo, 7, &target, keywordRule(10, 7, "python"))
	repo.matchErr = errors.New("disk full")

	res, err := newDispatcher(repo, nil).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Equal(t, []int64{10}, res.MatchedFilters)
	assert.Equal(t, 0, res.MatchesCreated)
	assert.Equal(t, 0, res.ForwardsCreated)
	assert.True(t, repo.processed[res.MessageID], "message still marked processed")
}

func TestDispatchNoSubscribers(t *testing.T) {
	repo := newFakeRepo()

	res, err := newDispatcher(repo, nil).Dispatch(context.Background(), incomingMessage())
	require.NoError(t, err)

	assert.Empty(t, res.MatchedFilters)
	assert.True(t, repo.processed[res.MessageID])
}
