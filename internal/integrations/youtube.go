package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Video is one YouTube search result
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	URL          string `json:"url"`
	PublishedAt  string `json:"published_at"`
}

// VideoSearcher search learning videos
type VideoSearcher interface {
	SearchVideos(ctx context.Context, query string, max int64) ([]Video, error)
}

// YouTube wraps YouTube Data API v3 search
type YouTube struct {
	svc *youtube.Service
}

// NewYouTube create client, returns nil client with ErrDisabled when apiKey is empty.
// Extra options are used by test to point the client to fake server.
func NewYouTube(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTube, error) {
	if apiKey == "" {
		return nil, ErrDisabled
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTube{svc: svc}, nil
}

// SearchVideos implements VideoSearcher
func (y *YouTube) SearchVideos(ctx context.Context, query string, max int64) ([]Video, error) {
	if y == nil || y.svc == nil {
		return nil, ErrDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}
	switch {
	case max <= 0:
		max = 8
	case max > 25:
		max = 25
	}

	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	videos := make([]Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		v := Video{
			ID:          item.Id.VideoId,
			Title:       item.Snippet.Title,
			Channel:     item.Snippet.ChannelTitle,
			Description: item.Snippet.Description,
			URL:         "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			PublishedAt: item.Snippet.PublishedAt,
		}
		if t := item.Snippet.Thumbnails; t != nil {
			switch {
			case t.Medium != nil:
				v.ThumbnailURL = t.Medium.Url
			case t.Default != nil:
				v.ThumbnailURL = t.Default.Url
			}
		}
		videos = append(videos, v)
	}
	return videos, nil
}
