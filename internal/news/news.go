// Package news serves gluten-free news headlines from an RSS feed, with a
// curated list as the fallback.
package news

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gfscout/internal/config"
	"github.com/sells-group/gfscout/internal/fetcher"
)

const (
	// DefaultFeedURL is the Gluten Free Living RSS feed.
	DefaultFeedURL = "https://www.glutenfreeliving.com/feed/"
	// DefaultMaxItems caps the headlines returned from the feed.
	DefaultMaxItems = 10
	// DefaultSource labels feed articles.
	DefaultSource = "Gluten Free Living"

	dateLayout = "January 02, 2006"
)

// Article is one headline.
type Article struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Date    string `json:"date"`
	Source  string `json:"source,omitempty"`
	Content string `json:"content,omitempty"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// Service reads the feed.
type Service struct {
	fetcher  fetcher.Fetcher
	feedURL  string
	maxItems int
	timeout  time.Duration
	source   string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithFeedURL overrides the feed location.
func WithFeedURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.feedURL = u
		}
	}
}

// WithMaxItems caps the number of feed articles.
func WithMaxItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

// WithTimeout bounds a single feed fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithSource sets the source label on feed articles.
func WithSource(src string) Option {
	return func(s *Service) {
		if src != "" {
			s.source = src
		}
	}
}

// WithClock sets the time source used for undated items.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service reading through f.
func New(f fetcher.Fetcher, opts ...Option) *Service {
	s := &Service{
		fetcher:  f,
		feedURL:  DefaultFeedURL,
		maxItems: DefaultMaxItems,
		timeout:  10 * time.Second,
		source:   DefaultSource,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewFromConfig creates a Service from the news config section.
func NewFromConfig(f fetcher.Fetcher, cfg config.NewsConfig) *Service {
	return New(f,
		WithFeedURL(cfg.FeedURL),
		WithMaxItems(cfg.MaxItems),
		WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second),
	)
}

// Latest returns feed headlines, or the curated list when the feed is
// unreachable, malformed or empty. It never returns an empty slice.
func (s *Service) Latest(ctx context.Context) []Article {
	articles, err := s.Fetch(ctx)
	if err != nil {
		zap.L().Warn("news: feed unavailable, using curated list",
			zap.String("feed_url", s.feedURL),
			zap.Error(err),
		)
		return Curated()
	}
	if len(articles) == 0 {
		zap.L().Info("news: feed empty, using curated list", zap.String("feed_url", s.feedURL))
		return Curated()
	}
	return articles
}

// Fetch reads up to maxItems articles from the feed.
func (s *Service) Fetch(ctx context.Context) ([]Article, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := s.fetcher.Download(ctx, s.feedURL)
	if err != nil {
		return nil, eris.Wrap(err, "news: download feed")
	}
	defer body.Close() //nolint:errcheck

	itemCh, errCh := fetcher.StreamXML[rssItem](ctx, body, "item", s.maxItems)

	articles := make([]Article, 0, s.maxItems)
	for item := range itemCh {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}
		articles = append(articles, Article{
			Title:  title,
			URL:    link,
			Date:   s.formatDate(item.PubDate),
			Source: s.source,
		})
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "news: parse feed")
	}

	zap.L().Debug("news: feed fetched", zap.Int("articles", len(articles)))
	return articles, nil
}

// formatDate renders pubDate as "January 02, 2006". Unparseable dates are
// passed through and missing ones default to today.
func (s *Service) formatDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.now().Format(dateLayout)
	}
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout)
		}
	}
	return raw
}
