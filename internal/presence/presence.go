// Package presence fans out typing subscriptions over the top of the
// merged conversation list. The fan-out is bounded and diffed: only
// direct conversations, only the first K, and an id that stays in the
// set keeps its existing subscription.
package presence

import (
	"log/slog"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

// DefaultLimit bounds the number of simultaneous typing subscriptions.
const DefaultLimit = 30

// Subscriber opens one typing signal for a conversation. The callback
// receives typing on/off edges; the returned unsubscribe must be
// idempotent.
type Subscriber interface {
	SubscribeTyping(conversationID, otherUserID string, cb func(typing bool, err error)) (unsubscribe func())
}

type Config struct {
	UserID     string
	Limit      int
	Subscriber Subscriber

	// OnChange fires when any conversation's typing flag flips.
	OnChange func(conversationID string, typing bool)
}

type Fanout struct {
	userID     string
	limit      int
	subscriber Subscriber
	onChange   func(string, bool)

	mu     sync.Mutex
	active map[string]func() // conversation id -> unsubscribe
	typing map[string]bool
	closed bool
}

func New(config Config) *Fanout {
	if config.Limit <= 0 {
		config.Limit = DefaultLimit
	}
	return &Fanout{
		userID:     config.UserID,
		limit:      config.Limit,
		subscriber: config.Subscriber,
		onChange:   config.OnChange,
		active:     make(map[string]func()),
		typing:     make(map[string]bool),
	}
}

// Update reconciles the fan-out against the current merged view. Eligible
// targets are the first Limit direct conversations. Subscriptions whose
// id left the set are torn down, new ids are subscribed, survivors are
// left untouched.
func (f *Fanout) Update(view []model.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	want := mapset.NewThreadUnsafeSet[string]()
	other := make(map[string]string)
	for _, c := range view {
		if !c.IsDirect() {
			continue
		}
		peer := c.OtherMember(f.userID)
		if peer == "" {
			continue
		}
		want.Add(c.ID)
		other[c.ID] = peer
		if want.Cardinality() >= f.limit {
			break
		}
	}

	have := mapset.NewThreadUnsafeSet[string]()
	for id := range f.active {
		have.Add(id)
	}

	for id := range have.Difference(want).Iter() {
		f.active[id]()
		delete(f.active, id)
		delete(f.typing, id)
	}

	for id := range want.Difference(have).Iter() {
		f.active[id] = f.subscribe(id, other[id])
	}
}

func (f *Fanout) subscribe(conversationID, otherUserID string) func() {
	return f.subscriber.SubscribeTyping(conversationID, otherUserID, func(typing bool, err error) {
		if err != nil {
			// A broken typing signal reads as "not typing"; siblings
			// keep their subscriptions.
			slog.Warn("typing subscription degraded", "conversation_id", conversationID, "error", err)
			typing = false
		}
		f.setTyping(conversationID, typing)
	})
}

func (f *Fanout) setTyping(conversationID string, typing bool) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if _, tracked := f.active[conversationID]; !tracked {
		// Late signal from a subscription already torn down.
		f.mu.Unlock()
		return
	}
	prev := f.typing[conversationID]
	f.typing[conversationID] = typing
	f.mu.Unlock()

	if prev != typing && f.onChange != nil {
		f.onChange(conversationID, typing)
	}
}

// Typing reports the current flag for a conversation.
func (f *Fanout) Typing(conversationID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typing[conversationID]
}

// Close tears down every active subscription. Idempotent.
func (f *Fanout) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, unsub := range f.active {
		unsub()
		delete(f.active, id)
	}
	f.typing = make(map[string]bool)
}
