package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

func TestConversation_Coercion(t *testing.T) {
	doc := map[string]any{
		"id":                  "conv1",
		"memberIds":           []any{"a", "b"},
		"isGroup":             false,
		"pinned":              true,
		"status":              "pending",
		"requestInitiatorId":  "a",
		"lastMessage":         "see you at 8",
		"lastMessageSenderId": "b",
		"updatedAt":           float64(1700000000123), // JSON number
		"lastReadAtBy": map[string]any{
			"a": "1700000000000", // string-encoded millis
			"b": int64(1699999999000),
		},
	}

	c, err := Conversation(doc)
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if c.ID != "conv1" || !c.Pinned || c.Status != model.ConversationPending {
		t.Errorf("unexpected coercion: %+v", c)
	}
	if c.UpdatedAt != 1700000000123 {
		t.Errorf("updatedAt: got %d", c.UpdatedAt)
	}
	if c.LastReadAtBy["a"] != 1700000000000 || c.LastReadAtBy["b"] != 1699999999000 {
		t.Errorf("lastReadAtBy: got %+v", c.LastReadAtBy)
	}
	if len(c.MemberIDs) != 2 {
		t.Errorf("memberIds: got %v", c.MemberIDs)
	}
}

func TestConversation_MissingID(t *testing.T) {
	_, err := Conversation(map[string]any{"lastMessage": "hi"})
	if !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestConversation_NumericID(t *testing.T) {
	c, err := Conversation(map[string]any{"id": float64(42)})
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if c.ID != "42" {
		t.Errorf("expected id \"42\", got %q", c.ID)
	}
}

func TestConversation_SanitizesLastMessage(t *testing.T) {
	c, err := Conversation(map[string]any{
		"id":          "c1",
		"lastMessage": `hello <script>alert("x")</script>friend`,
	})
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if strings.Contains(c.LastMessage, "<script>") || strings.Contains(c.LastMessage, "alert") {
		t.Errorf("script survived sanitizing: %q", c.LastMessage)
	}
	if !strings.Contains(c.LastMessage, "hello") {
		t.Errorf("legitimate text lost: %q", c.LastMessage)
	}
}

func TestConversations_DropsMalformed(t *testing.T) {
	docs := []map[string]any{
		{"id": "ok1"},
		{"lastMessage": "no id"},
		{"id": "ok2"},
	}
	convs, dropped := Conversations(docs)
	if len(convs) != 2 || dropped != 1 {
		t.Errorf("expected 2 kept / 1 dropped, got %d / %d", len(convs), dropped)
	}
}

func TestStoryPost(t *testing.T) {
	p, err := StoryPost(map[string]any{
		"id":        "s1",
		"authorId":  "alice",
		"mediaRef":  "media/abc",
		"createdAt": float64(12345),
	})
	if err != nil {
		t.Fatalf("StoryPost failed: %v", err)
	}
	if p.AuthorID != "alice" || p.CreatedAt != 12345 {
		t.Errorf("unexpected post: %+v", p)
	}

	if _, err := StoryPost(map[string]any{"id": "s2"}); err == nil {
		t.Error("expected error for missing author")
	}
}

func TestPromotedItem(t *testing.T) {
	it, err := PromotedItem(map[string]any{
		"id":        "ad1",
		"title":     "Watch <b>now</b>",
		"bidWeight": 2.5,
		"createdAt": int64(999),
	})
	if err != nil {
		t.Fatalf("PromotedItem failed: %v", err)
	}
	if it.BidWeight != 2.5 || it.CreatedAt != 999 {
		t.Errorf("unexpected item: %+v", it)
	}
	if strings.Contains(it.Title, "<b>") {
		t.Errorf("markup survived sanitizing: %q", it.Title)
	}
}
