package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	FeedURL string
	UserID  string
	DBFile  string

	LiveLimit     int
	PageSize      int
	PresenceLimit int

	StoryWindow   time.Duration
	SkewTolerance time.Duration

	AdPattern   []int
	AdPlacement string
}

func Load() (*Config, error) {
	storyWindow, err := time.ParseDuration(getEnv("STORY_WINDOW", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid STORY_WINDOW: %w", err)
	}
	skew, err := time.ParseDuration(getEnv("READ_SKEW_TOLERANCE", "500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid READ_SKEW_TOLERANCE: %w", err)
	}
	pattern, err := parsePattern(getEnv("AD_PATTERN", "4,3,5"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		FeedURL:       getEnv("FEED_URL", "wss://localhost:8443/feed"),
		UserID:        os.Getenv("USER_ID"),
		DBFile:        getEnv("LOCAL_DB", "local.db"),
		LiveLimit:     getEnvInt("LIVE_LIMIT", 50),
		PageSize:      getEnvInt("PAGE_SIZE", 20),
		PresenceLimit: getEnvInt("PRESENCE_LIMIT", 30),
		StoryWindow:   storyWindow,
		SkewTolerance: skew,
		AdPattern:     pattern,
		AdPlacement:   getEnv("AD_PLACEMENT", "conversation-list"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("USER_ID is required")
	}
	if c.LiveLimit <= 0 || c.PageSize <= 0 || c.PresenceLimit <= 0 {
		return fmt.Errorf("LIVE_LIMIT, PAGE_SIZE and PRESENCE_LIMIT must be greater than 0")
	}
	if c.StoryWindow <= 0 {
		return fmt.Errorf("STORY_WINDOW must be greater than 0")
	}
	return nil
}

func parsePattern(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	pattern := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid AD_PATTERN entry %q: %w", p, err)
		}
		pattern = append(pattern, n)
	}
	return pattern, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
