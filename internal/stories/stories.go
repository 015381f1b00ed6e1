// Package stories derives rail and viewer groupings from a flat list of
// ephemeral posts. Expiry is evaluated against a rolling window at call
// time; nothing here persists.
package stories

import (
	"sort"
	"time"

	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
)

// DefaultWindow is the rolling lifetime of a post.
const DefaultWindow = 24 * time.Hour

type Grouper struct {
	Window time.Duration

	now func() time.Time
}

func New(window time.Duration) *Grouper {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Grouper{Window: window, now: time.Now}
}

// GroupForRail returns one summary entry per author holding an in-window
// post, each carrying only that author's latest post. The viewer's own
// entry is always first: populated from their latest post when they have
// one, a "tap to add" placeholder otherwise.
func (g *Grouper) GroupForRail(posts []model.StoryPost, viewerID string) []model.StoryGroup {
	latest := make(map[string]model.StoryPost)
	var order []string
	for _, p := range g.inWindow(posts) {
		cur, seen := latest[p.AuthorID]
		if !seen {
			order = append(order, p.AuthorID)
		}
		if !seen || p.CreatedAt > cur.CreatedAt {
			latest[p.AuthorID] = p
		}
	}

	self := model.StoryGroup{AuthorID: viewerID, IsSelf: true, IsPlaceholder: true}
	if p, ok := latest[viewerID]; ok {
		self = model.StoryGroup{
			AuthorID: viewerID,
			LatestID: p.ID,
			LatestAt: p.CreatedAt,
			HasStory: true,
			IsSelf:   true,
		}
	}

	out := []model.StoryGroup{self}
	for _, author := range order {
		if author == viewerID {
			continue
		}
		p := latest[author]
		out = append(out, model.StoryGroup{
			AuthorID: author,
			LatestID: p.ID,
			LatestAt: p.CreatedAt,
			HasStory: true,
		})
	}
	return out
}

// GroupForViewer returns every author's full in-window session, posts
// sorted oldest first so sequential playback preserves narrative order.
// Authors with no in-window posts are omitted; there is no placeholder.
func (g *Grouper) GroupForViewer(posts []model.StoryPost) []model.StoryGroup {
	byAuthor := make(map[string][]model.StoryPost)
	var order []string
	for _, p := range g.inWindow(posts) {
		if _, seen := byAuthor[p.AuthorID]; !seen {
			order = append(order, p.AuthorID)
		}
		byAuthor[p.AuthorID] = append(byAuthor[p.AuthorID], p)
	}

	out := make([]model.StoryGroup, 0, len(order))
	for _, author := range order {
		session := byAuthor[author]
		sort.Slice(session, func(i, j int) bool {
			return session[i].CreatedAt < session[j].CreatedAt
		})
		last := session[len(session)-1]
		out = append(out, model.StoryGroup{
			AuthorID: author,
			LatestID: last.ID,
			LatestAt: last.CreatedAt,
			Posts:    session,
			HasStory: true,
		})
	}
	return out
}

func (g *Grouper) inWindow(posts []model.StoryPost) []model.StoryPost {
	cutoff := g.now().UnixMilli() - g.Window.Milliseconds()
	out := make([]model.StoryPost, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt >= cutoff {
			out = append(out, p)
		}
	}
	return out
}
