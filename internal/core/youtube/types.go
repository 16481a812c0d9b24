package youtube

import (
	"errors"
	"fmt"
	"time"
)

// LikedCollectionID is the reserved playlist id YouTube uses for the
// authenticated user's liked videos.
const LikedCollectionID = "LL"

const pageSize = 50

var (
	ErrUnauthorized  = errors.New("youtube token expired or invalid, please sign in again")
	ErrQuotaExceeded = errors.New("youtube quota exceeded or permission denied")
)

// APIError is any other non-2xx answer from the Data API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("youtube api error %d: %s", e.StatusCode, e.Body)
}

type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ThumbnailURL string    `json:"thumbnail_url"`
	ChannelName  string    `json:"channel_name"`
	PublishedAt  time.Time `json:"published_at"`
}

// Collection is a playlist the user owns.
type Collection struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ItemCount    int    `json:"itemCount"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// --- Data API v3 wire types ---

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Medium *thumbnail `json:"medium"`
	High   *thumbnail `json:"high"`
}

type playlistItemsResp struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			ChannelTitle string     `json:"channelTitle"`
			PublishedAt  string     `json:"publishedAt"`
			Thumbnails   thumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type playlistsResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			ItemCount int `json:"itemCount"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type commentThreadsResp struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				Snippet struct {
					TextDisplay string `json:"textDisplay"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}
