package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	adapterrepo "petadopt/internal/adapter/repository"
	"petadopt/internal/domain/entity"
	"petadopt/internal/infrastructure/cache"
	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/pkg/logger"
)

const waitFor = 2 * time.Second

type fixture struct {
	clock      clockwork.FakeClock
	store      *adapterrepo.MemoryChatStore
	users      *adapterrepo.MemoryUserRepository
	listings   *adapterrepo.MemoryListingRepository
	limiter    *ratelimit.RateLimiter
	identity   *IdentityResolver
	chat       *ChatUseCase
	aggregator *UnreadAggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger.SetOutput(io.Discard)

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC))
	f := &fixture{
		clock:    clock,
		store:    adapterrepo.NewMemoryChatStore(clock),
		users:    adapterrepo.NewMemoryUserRepository(),
		listings: adapterrepo.NewMemoryListingRepository(),
		limiter: ratelimit.NewRateLimiter(clock, map[string]ratelimit.Policy{
			ratelimit.ActionSendMessage: {Limit: 100, Window: time.Minute},
		}),
	}
	for _, p := range []entity.Profile{
		{ID: "alice", DisplayName: "Alice", AvatarURL: "https://img.example/alice.png"},
		{ID: "bob", DisplayName: "Bob"},
		{ID: "carol", Email: "carol@example.com"},
	} {
		profile := p
		require.NoError(t, f.users.Upsert(context.Background(), &profile))
	}
	f.listings.Put(entity.Listing{ID: "l1", OwnerID: "bob", Title: "Biscuit, 2y beagle", Status: "available"})

	f.identity = NewIdentityResolver(f.users, nil, cache.NewMemoryProfileCache(clock, time.Minute))
	f.chat = NewChatUseCase(f.store, f.store, f.listings, f.identity, f.limiter)
	f.aggregator = NewUnreadAggregator(f.store)
	return f
}

func (f *fixture) roomID(t *testing.T, a, b string) string {
	t.Helper()
	id, err := f.chat.GetOrCreateRoom(a, b)
	require.NoError(t, err)
	return id
}

func (f *fixture) session(t *testing.T, userID string) (*Session, *recorder) {
	t.Helper()
	rec := newRecorder()
	s := NewSession(f.chat, f.aggregator, NewNotificationPresenter(rec, rec), rec)
	require.NoError(t, s.SignIn(context.Background(), userID))
	t.Cleanup(s.Close)
	return s, rec
}

// recorder captures everything a session pushes to its viewer.
type recorder struct {
	mu       sync.Mutex
	badges   []entity.UnreadState
	cues     []string
	cueErr   error
	rooms    map[string]*entity.ChatRoom
	messages map[string][]*entity.Message
	errs     []error
}

func newRecorder() *recorder {
	return &recorder{
		rooms:    make(map[string]*entity.ChatRoom),
		messages: make(map[string][]*entity.Message),
	}
}

func (r *recorder) ShowBadge(state entity.UnreadState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, state)
}

func (r *recorder) PlayCue(roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, roomID)
	return r.cueErr
}

func (r *recorder) OnRoom(roomID string, room *entity.ChatRoom) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[roomID] = room
}

func (r *recorder) OnMessages(roomID string, messages []*entity.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[roomID] = messages
}

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// lastCount is the most recent badge count, or -1 before the first snapshot.
func (r *recorder) lastCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.badges) == 0 {
		return -1
	}
	return r.badges[len(r.badges)-1].Count
}

func (r *recorder) badgeCounts() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make([]int, len(r.badges))
	for i, b := range r.badges {
		counts[i] = b.Count
	}
	return counts
}

func (r *recorder) cueRooms() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.cues...)
}

func (r *recorder) messageCount(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[roomID])
}
