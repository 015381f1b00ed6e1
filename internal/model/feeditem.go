package model

import "fmt"

type FeedKind string

const (
	KindConversation FeedKind = "conversation"
	KindCall         FeedKind = "call"
	KindAd           FeedKind = "ad"
	KindStory        FeedKind = "story"
	KindProfile      FeedKind = "profile"
)

// CallRecord is a call-history entry rendered in the same lists as
// conversations.
type CallRecord struct {
	ID       string `json:"id"`
	PeerID   string `json:"peerId"`
	Video    bool   `json:"video"`
	Missed   bool   `json:"missed"`
	PlacedAt int64  `json:"placedAt"`
}

// UserProfile is the subset of a profile that flows through list surfaces.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	AvatarRef   string `json:"avatarRef"`
}

// FeedItem is the closed variant flowing through list and grid surfaces.
// Exactly one payload field is set, selected by Kind. Consumers dispatch
// on Kind; shape-sniffing the payload fields is not supported.
type FeedItem struct {
	Kind         FeedKind      `json:"kind"`
	Conversation *Conversation `json:"conversation,omitempty"`
	Call         *CallRecord   `json:"call,omitempty"`
	Ad           *PromotedItem `json:"ad,omitempty"`
	Story        *StoryGroup   `json:"story,omitempty"`
	Profile      *UserProfile  `json:"profile,omitempty"`
}

func ConversationItem(c Conversation) FeedItem {
	return FeedItem{Kind: KindConversation, Conversation: &c}
}

func CallItem(c CallRecord) FeedItem {
	return FeedItem{Kind: KindCall, Call: &c}
}

func AdItem(a PromotedItem) FeedItem {
	return FeedItem{Kind: KindAd, Ad: &a}
}

func StoryItem(g StoryGroup) FeedItem {
	return FeedItem{Kind: KindStory, Story: &g}
}

func ProfileItem(p UserProfile) FeedItem {
	return FeedItem{Kind: KindProfile, Profile: &p}
}

// ItemID returns the identity of the wrapped payload.
func (f FeedItem) ItemID() string {
	switch f.Kind {
	case KindConversation:
		return f.Conversation.ID
	case KindCall:
		return f.Call.ID
	case KindAd:
		return f.Ad.ID
	case KindStory:
		return f.Story.AuthorID
	case KindProfile:
		return f.Profile.ID
	}
	return ""
}

// Validate rejects items whose Kind and payload disagree.
func (f FeedItem) Validate() error {
	switch f.Kind {
	case KindConversation:
		if f.Conversation == nil {
			return fmt.Errorf("feed item %q missing conversation payload", f.Kind)
		}
	case KindCall:
		if f.Call == nil {
			return fmt.Errorf("feed item %q missing call payload", f.Kind)
		}
	case KindAd:
		if f.Ad == nil {
			return fmt.Errorf("feed item %q missing ad payload", f.Kind)
		}
	case KindStory:
		if f.Story == nil {
			return fmt.Errorf("feed item %q missing story payload", f.Kind)
		}
	case KindProfile:
		if f.Profile == nil {
			return fmt.Errorf("feed item %q missing profile payload", f.Kind)
		}
	default:
		return fmt.Errorf("unknown feed item kind %q", f.Kind)
	}
	return nil
}
