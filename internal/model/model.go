package model

import "errors"

var (
	ErrNotFound = errors.New("not found")
)

type ConversationStatus string

const (
	ConversationActive  ConversationStatus = "active"
	ConversationPending ConversationStatus = "pending"
)

// Conversation is a thread between two or more users. The id is globally
// unique and stable across the live subscription and the paginated
// backfill, which is what makes merging by identity possible.
type Conversation struct {
	ID                 string             `json:"id"`
	MemberIDs          []string           `json:"memberIds"`
	IsGroup            bool               `json:"isGroup"`
	IsBroadcast        bool               `json:"isBroadcast"`
	Status             ConversationStatus `json:"status"`
	RequestInitiatorID string             `json:"requestInitiatorId,omitempty"`
	Pinned             bool               `json:"pinned"`
	LastMessage        string             `json:"lastMessage"`
	LastMessageSender  string             `json:"lastMessageSenderId"`
	UpdatedAt          int64              `json:"updatedAt"` // server timestamp, epoch ms
	LastReadAtBy       map[string]int64   `json:"lastReadAtBy"`
}

// OtherMember returns the member that is not uid. Only meaningful for
// direct conversations.
func (c Conversation) OtherMember(uid string) string {
	for _, m := range c.MemberIDs {
		if m != uid {
			return m
		}
	}
	return ""
}

// IsDirect reports whether the conversation is a plain two-party thread.
func (c Conversation) IsDirect() bool {
	return !c.IsGroup && !c.IsBroadcast
}

// IsRequestFor reports whether uid sees this conversation as an incoming
// request: the thread is pending and uid did not initiate it.
func (c Conversation) IsRequestFor(uid string) bool {
	return c.Status == ConversationPending && c.RequestInitiatorID != "" && c.RequestInitiatorID != uid
}

// StoryPost is a single ephemeral post. Expiry is never stored; it is
// computed against a rolling window at read time.
type StoryPost struct {
	ID        string `json:"id"`
	AuthorID  string `json:"authorId"`
	MediaRef  string `json:"mediaRef"`
	CreatedAt int64  `json:"createdAt"` // epoch ms
}

// StoryGroup is derived per author, never persisted.
type StoryGroup struct {
	AuthorID      string      `json:"authorId"`
	LatestID      string      `json:"latestId"`
	LatestAt      int64       `json:"latestAt"`
	Posts         []StoryPost `json:"posts"`
	HasStory      bool        `json:"hasStory"`
	IsSelf        bool        `json:"isSelf"`
	IsPlaceholder bool        `json:"isPlaceholder,omitempty"`
}

// PromotedItem is a sponsored entry from the promotable pool. Ranking by
// bid weight happens elsewhere; the engine only cycles through the pool.
type PromotedItem struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	MediaRef  string  `json:"mediaRef"`
	BidWeight float64 `json:"bidWeight"`
	CreatedAt int64   `json:"createdAt"`
}
