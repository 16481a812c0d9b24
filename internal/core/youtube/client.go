package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"foodtube/internal/logger"
	"foodtube/internal/utils/markdown"
)

const defaultAPIBase = "https://www.googleapis.com/youtube/v3"

// Client talks to the YouTube Data API v3 on behalf of a user. Every call
// takes the user's OAuth access token.
type Client struct {
	base string
	http *http.Client
	log  *logger.Logger
}

func NewClient(base string, httpClient *http.Client) *Client {
	if base == "" {
		base = defaultAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: strings.TrimSuffix(base, "/"), http: httpClient, log: logger.New("YouTube")}
}

func (c *Client) get(ctx context.Context, path, token string, params url.Values, dest interface{}) error {
	u := c.base + "/" + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("youtube %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusForbidden:
			return ErrQuotaExceeded
		}
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("youtube %s: decode: %w", path, err)
	}
	return nil
}

// ListCollectionVideoIDs pages through a playlist (or LikedCollectionID) and
// returns at most maxResults video ids in playlist order.
func (c *Client) ListCollectionVideoIDs(ctx context.Context, token, collectionID string, maxResults int) ([]string, error) {
	ids := make([]string, 0, min(maxResults, pageSize))
	if maxResults <= 0 {
		return ids, nil
	}

	pageToken := ""
	for len(ids) < maxResults {
		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("playlistId", collectionID)
		params.Set("maxResults", strconv.Itoa(min(pageSize, maxResults-len(ids))))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var page playlistItemsResp
		if err := c.get(ctx, "playlistItems", token, params, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if vid := item.ContentDetails.VideoID; vid != "" {
				ids = append(ids, vid)
			}
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	c.log.LogDebugf("collected %d video ids from %s", len(ids), collectionID)
	return ids, nil
}

// GetVideoDetails looks videos up in chunks of 50. Deleted or private videos
// are silently missing from the result.
func (c *Client) GetVideoDetails(ctx context.Context, token string, ids []string) ([]Video, error) {
	videos := make([]Video, 0, len(ids))
	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))

		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("id", strings.Join(ids[start:end], ","))

		var resp videosResp
		if err := c.get(ctx, "videos", token, params, &resp); err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			v := Video{
				ID:           item.ID,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				ThumbnailURL: pickThumbnail(item.Snippet.Thumbnails, true),
				ChannelName:  item.Snippet.ChannelTitle,
			}
			if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
				v.PublishedAt = t
			}
			videos = append(videos, v)
		}
	}
	return videos, nil
}

// ListUserCollections returns the first page (up to 50) of the user's own
// playlists.
func (c *Client) ListUserCollections(ctx context.Context, token string) ([]Collection, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails")
	params.Set("mine", "true")
	params.Set("maxResults", strconv.Itoa(pageSize))

	var resp playlistsResp
	if err := c.get(ctx, "playlists", token, params, &resp); err != nil {
		return nil, err
	}
	out := make([]Collection, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, Collection{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ItemCount:    item.ContentDetails.ItemCount,
			ThumbnailURL: pickThumbnail(item.Snippet.Thumbnails, false),
		})
	}
	return out, nil
}

// GetTopComment returns the most relevant top-level comment as plain text, or
// "" when there is none. Failures (comments disabled, quota, network) are logged and
// swallowed.
func (c *Client) GetTopComment(ctx context.Context, token, videoID string) string {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("videoId", videoID)
	params.Set("order", "relevance")
	params.Set("maxResults", "1")

	var resp commentThreadsResp
	if err := c.get(ctx, "commentThreads", token, params, &resp); err != nil {
		c.log.LogDebugf("no top comment for %s: %v", videoID, err)
		return ""
	}
	if len(resp.Items) == 0 {
		return ""
	}
	return markdown.CommentText(resp.Items[0].Snippet.TopLevelComment.Snippet.TextDisplay)
}

func pickThumbnail(t thumbnails, preferHigh bool) string {
	if preferHigh && t.High != nil && t.High.URL != "" {
		return t.High.URL
	}
	if t.Medium != nil {
		return t.Medium.URL
	}
	return ""
}
