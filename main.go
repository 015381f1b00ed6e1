package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mzazimhenga22/movieflix-sub004/internal/ads"
	"github.com/mzazimhenga22/movieflix-sub004/internal/config"
	"github.com/mzazimhenga22/movieflix-sub004/internal/engine"
	"github.com/mzazimhenga22/movieflix-sub004/internal/livefeed"
	"github.com/mzazimhenga22/movieflix-sub004/internal/model"
	"github.com/mzazimhenga22/movieflix-sub004/internal/storage"
	"github.com/mzazimhenga22/movieflix-sub004/internal/stories"
)

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	local, err := storage.NewBboltStore(cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = local.Close() }()

	feed, err := livefeed.Dial(ctx, cfg.FeedURL)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return feed.Run(gCtx)
	})

	pool := ads.LoadPool(gCtx, feed, cfg.AdPlacement)
	if pool.Empty() {
		log.Printf("no promoted items for placement %s", cfg.AdPlacement)
	}
	// One start index per viewing session keeps ad slots stable across
	// re-renders.
	startIndex := ads.RandomStart(cfg.AdPattern)

	messenger := engine.New(engine.Config{
		UserID:        cfg.UserID,
		LiveLimit:     cfg.LiveLimit,
		PageSize:      cfg.PageSize,
		PresenceLimit: cfg.PresenceLimit,
		SkewTolerance: cfg.SkewTolerance,
		Fetcher:       feed,
		Local:         local.ForUser(cfg.UserID),
		Remote:        feed,
		Subscriber:    feed,
		OnView: func(rows []engine.Row) {
			items := make([]model.FeedItem, 0, len(rows))
			unread := 0
			for _, r := range rows {
				items = append(items, model.ConversationItem(r.Conversation))
				if r.Unread {
					unread++
				}
			}
			list := ads.Interleave(items, cfg.AdPattern, startIndex, nil, nil, pool.CreateAd)
			log.Printf("conversation view: %d rows (%d unread, %d with ads)", len(rows), unread, len(list))
		},
	})
	defer messenger.Close()
	messenger.Start(feed)

	grouper := stories.New(cfg.StoryWindow)
	unsubStories := feed.SubscribeStories(cfg.UserID, func(posts []model.StoryPost) {
		rail := grouper.GroupForRail(posts, cfg.UserID)
		log.Printf("story rail: %d entries", len(rail))
	})
	defer unsubStories()

	g.Go(func() error {
		<-gCtx.Done()
		log.Println("Shutting down...")
		messenger.Close()
		feed.Close()
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
