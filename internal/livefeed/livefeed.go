// Package livefeed speaks the push/pull protocol of the remote store over
// a single websocket: push topics deliver reordered snapshots, one-shot
// requests ride the same connection as request/response frames. It is the
// only package that sees raw remote documents; everything is coerced
// through ingest before a callback fires.
package livefeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mzazimhenga22/movieflix-sub004/internal/ingest"
	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

const requestTimeout = 15 * time.Second

var ErrClosed = errors.New("livefeed client closed")

type wsConn interface {
	Close() error
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
}

type clientFrame struct {
	Op     string         `json:"op"` // subscribe | unsubscribe | request
	Topic  string         `json:"topic,omitempty"`
	ReqID  string         `json:"reqId,omitempty"`
	Method string         `json:"method,omitempty"`
	Params map[string]any `json:"params,omitempty"`
}

type serverFrame struct {
	Topic  string           `json:"topic,omitempty"`
	ReqID  string           `json:"reqId,omitempty"`
	Docs   []map[string]any `json:"docs,omitempty"`
	Typing *bool            `json:"typing,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type Client struct {
	conn wsConn

	writeMu sync.Mutex // gorilla allows one concurrent writer

	mu      sync.Mutex
	subs    map[string]func(serverFrame)
	pending map[string]chan serverFrame
	closed  bool
}

// Dial connects to the feed endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial live feed: %w", err)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection. Run must be started for
// callbacks and responses to flow.
func NewClient(conn wsConn) *Client {
	return &Client{
		conn:    conn,
		subs:    make(map[string]func(serverFrame)),
		pending: make(map[string]chan serverFrame),
	}
}

// Run pumps incoming frames until the connection or ctx dies. Frames for
// topics nobody subscribes to anymore are dropped.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.Close()
	go func() {
		<-ctx.Done()
		c.Close()
	}()
	for {
		var frame serverFrame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.route(frame)
	}
}

func (c *Client) route(frame serverFrame) {
	c.mu.Lock()
	if frame.ReqID != "" {
		ch, ok := c.pending[frame.ReqID]
		if ok {
			delete(c.pending, frame.ReqID)
		}
		c.mu.Unlock()
		if ok {
			ch <- frame
		}
		return
	}
	handler := c.subs[frame.Topic]
	c.mu.Unlock()

	if handler != nil {
		handler(frame)
	}
}

// Close tears the connection down and fails all pending requests.
// Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]chan serverFrame)
	c.subs = make(map[string]func(serverFrame))
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- serverFrame{Error: ErrClosed.Error()}
	}
	if err := c.conn.Close(); err != nil {
		log.Printf("error closing live feed connection: %v", err)
	}
}

func (c *Client) send(frame clientFrame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(frame)
}

// subscribe registers a handler and returns an idempotent unsubscribe.
// Frames delivered after unsubscribe are dropped by route.
func (c *Client) subscribe(topic string, params map[string]any, handler func(serverFrame)) func() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return func() {}
	}
	c.subs[topic] = handler
	c.mu.Unlock()

	if err := c.send(clientFrame{Op: "subscribe", Topic: topic, Params: params}); err != nil {
		log.Printf("subscribe %s failed: %v", topic, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, topic)
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return
			}
			if err := c.send(clientFrame{Op: "unsubscribe", Topic: topic}); err != nil {
				log.Printf("unsubscribe %s failed: %v", topic, err)
			}
		})
	}
}

// SubscribeConversations streams the bounded live conversation window.
// Every change delivers a full reordered snapshot.
func (c *Client) SubscribeConversations(userID string, limit int, cb func([]model.Conversation)) func() {
	topic := "conversations:" + userID
	params := map[string]any{"limit": limit}
	return c.subscribe(topic, params, func(frame serverFrame) {
		convs, dropped := ingest.Conversations(frame.Docs)
		if dropped > 0 {
			log.Printf("dropped %d malformed conversation docs on %s", dropped, topic)
		}
		cb(convs)
	})
}

// SubscribeTyping satisfies the presence subscriber contract.
func (c *Client) SubscribeTyping(conversationID, otherUserID string, cb func(typing bool, err error)) func() {
	topic := "typing:" + conversationID
	params := map[string]any{"otherUserId": otherUserID}
	return c.subscribe(topic, params, func(frame serverFrame) {
		if frame.Error != "" {
			cb(false, errors.New(frame.Error))
			return
		}
		cb(frame.Typing != nil && *frame.Typing, nil)
	})
}

// SubscribeStories streams the viewer's story feed.
func (c *Client) SubscribeStories(viewerID string, cb func([]model.StoryPost)) func() {
	topic := "stories:" + viewerID
	return c.subscribe(topic, nil, func(frame serverFrame) {
		posts := make([]model.StoryPost, 0, len(frame.Docs))
		for _, doc := range frame.Docs {
			p, err := ingest.StoryPost(doc)
			if err != nil {
				continue
			}
			posts = append(posts, p)
		}
		cb(posts)
	})
}

func (c *Client) request(ctx context.Context, method string, params map[string]any) (serverFrame, error) {
	reqID := uuid.NewString()
	ch := make(chan serverFrame, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return serverFrame{}, ErrClosed
	}
	c.pending[reqID] = ch
	c.mu.Unlock()

	if err := c.send(clientFrame{Op: "request", ReqID: reqID, Method: method, Params: params}); err != nil {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return serverFrame{}, fmt.Errorf("request %s failed: %w", method, err)
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()
	select {
	case frame := <-ch:
		if frame.Error != "" {
			return serverFrame{}, fmt.Errorf("request %s: %s", method, frame.Error)
		}
		return frame, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return serverFrame{}, ctx.Err()
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
		return serverFrame{}, fmt.Errorf("request %s timed out", method)
	}
}

// FetchOlder satisfies the convstore fetcher contract: items strictly
// older than the cursor.
func (c *Client) FetchOlder(ctx context.Context, userID string, cursorUpdatedAt int64, pageSize int) ([]model.Conversation, error) {
	frame, err := c.request(ctx, "olderConversations", map[string]any{
		"userId":   userID,
		"cursor":   cursorUpdatedAt,
		"pageSize": pageSize,
	})
	if err != nil {
		return nil, err
	}
	convs, _ := ingest.Conversations(frame.Docs)
	return convs, nil
}

// FetchPromotablePool satisfies the ads pool fetcher contract.
func (c *Client) FetchPromotablePool(ctx context.Context, placement string) ([]model.PromotedItem, error) {
	frame, err := c.request(ctx, "promotablePool", map[string]any{"placement": placement})
	if err != nil {
		return nil, err
	}
	items := make([]model.PromotedItem, 0, len(frame.Docs))
	for _, doc := range frame.Docs {
		it, err := ingest.PromotedItem(doc)
		if err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, nil
}

// AckRead satisfies the read-state remote acker contract.
func (c *Client) AckRead(ctx context.Context, conversationID, userID string, readAtMs int64) error {
	_, err := c.request(ctx, "ackRead", map[string]any{
		"conversationId": conversationID,
		"userId":         userID,
		"readAtMs":       readAtMs,
	})
	return err
}
