// Package ingest coerces the dynamic documents returned by the remote
// store into the typed entities of the model package. Untyped maps stop
// here; nothing downstream ever sees a map[string]any.
package ingest

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

var (
	ErrMissingID = errors.New("document has no id")

	// Remote text fields are user-generated; strip everything.
	textPolicy = bluemonday.StrictPolicy()
)

// Conversation coerces a raw remote document. Documents without a stable
// id are rejected; everything else degrades field by field.
func Conversation(doc map[string]any) (model.Conversation, error) {
	id := asString(doc["id"])
	if id == "" {
		return model.Conversation{}, ErrMissingID
	}

	c := model.Conversation{
		ID:                 id,
		MemberIDs:          asStringSlice(doc["memberIds"]),
		IsGroup:            asBool(doc["isGroup"]),
		IsBroadcast:        asBool(doc["isBroadcast"]),
		RequestInitiatorID: asString(doc["requestInitiatorId"]),
		Pinned:             asBool(doc["pinned"]),
		LastMessage:        textPolicy.Sanitize(asString(doc["lastMessage"])),
		LastMessageSender:  asString(doc["lastMessageSenderId"]),
		UpdatedAt:          asMillis(doc["updatedAt"]),
	}

	switch asString(doc["status"]) {
	case string(model.ConversationPending):
		c.Status = model.ConversationPending
	default:
		c.Status = model.ConversationActive
	}

	if m, ok := doc["lastReadAtBy"].(map[string]any); ok {
		c.LastReadAtBy = make(map[string]int64, len(m))
		for uid, v := range m {
			c.LastReadAtBy[uid] = asMillis(v)
		}
	}

	return c, nil
}

// Conversations coerces a batch, dropping invalid documents. The count of
// dropped documents is returned so callers can log it.
func Conversations(docs []map[string]any) ([]model.Conversation, int) {
	out := make([]model.Conversation, 0, len(docs))
	dropped := 0
	for _, doc := range docs {
		c, err := Conversation(doc)
		if err != nil {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}

func StoryPost(doc map[string]any) (model.StoryPost, error) {
	id := asString(doc["id"])
	author := asString(doc["authorId"])
	if id == "" || author == "" {
		return model.StoryPost{}, fmt.Errorf("story document missing id or author: %w", ErrMissingID)
	}
	return model.StoryPost{
		ID:        id,
		AuthorID:  author,
		MediaRef:  asString(doc["mediaRef"]),
		CreatedAt: asMillis(doc["createdAt"]),
	}, nil
}

func PromotedItem(doc map[string]any) (model.PromotedItem, error) {
	id := asString(doc["id"])
	if id == "" {
		return model.PromotedItem{}, ErrMissingID
	}
	return model.PromotedItem{
		ID:        id,
		Title:     textPolicy.Sanitize(asString(doc["title"])),
		MediaRef:  asString(doc["mediaRef"]),
		BidWeight: asFloat(doc["bidWeight"]),
		CreatedAt: asMillis(doc["createdAt"]),
	}, nil
}

// The remote store is loosely typed: numbers arrive as float64 from JSON
// decoding, as int64 from native SDKs, and occasionally as strings.

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatInt(int64(s), 10)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asMillis(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		ms, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0
		}
		return ms
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s := asString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}
