// Package youtube extracts the title, thumbnail and transcript of a video.
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mark3labs/qaflow/internal/webfetch"
	"go.uber.org/zap"
)

var (
	// ErrInvalidURL is returned when no video id can be found in a URL.
	ErrInvalidURL = errors.New("youtube: invalid YouTube URL")
	// ErrNoTranscript is returned when no caption track matches the languages.
	ErrNoTranscript = errors.New("youtube: no transcript in requested languages")
)

// DefaultLanguages is the caption preference order.
var DefaultLanguages = []string{"ar", "en"}

var (
	videoIDPattern      = regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})`)
	captionTracksMarker = `"captionTracks":`
)

// ExtractVideoID returns the 11 character id found in rawURL.
func ExtractVideoID(rawURL string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ThumbnailURL returns the max resolution thumbnail of a video.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}

// Video is the extracted information.
type Video struct {
	VideoID      string
	Title        string
	Transcript   string
	ThumbnailURL string
}

// Client fetches watch pages and caption tracks.
type Client struct {
	http      *http.Client
	languages []string
	logger    *zap.Logger
}

// New creates a client. Nil languages uses DefaultLanguages.
func New(languages []string, logger *zap.Logger) *Client {
	if len(languages) == 0 {
		languages = DefaultLanguages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		languages: languages,
		logger:    logger,
	}
}

// Fetch loads the watch page at rawURL and the first caption track that
// matches the client's languages, in preference order.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Video, error) {
	id, ok := ExtractVideoID(rawURL)
	if !ok {
		return nil, ErrInvalidURL
	}

	page, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	parsed, err := webfetch.Parse(page)
	if err != nil {
		return nil, fmt.Errorf("youtube: parse watch page: %w", err)
	}

	tracks, err := captionTracks(page)
	if err != nil {
		return nil, err
	}
	track, ok := pickTrack(tracks, c.languages)
	if !ok {
		return nil, ErrNoTranscript
	}

	raw, err := c.get(ctx, track.BaseURL)
	if err != nil {
		return nil, err
	}
	transcript, err := parseTranscript(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("video fetched",
		zap.String("video_id", id),
		zap.String("language", track.LanguageCode),
		zap.Int("transcript_chars", len(transcript)),
	)
	return &Video{
		VideoID:      id,
		Title:        strings.ReplaceAll(parsed.Title, " - YouTube", ""),
		Transcript:   transcript,
		ThumbnailURL: ThumbnailURL(id),
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("youtube: create request: %w", err)
	}
	req.Header.Set("User-Agent", webfetch.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("youtube: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("youtube: get %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("youtube: read body: %w", err)
	}
	return string(body), nil
}

type track struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

// captionTracks decodes the caption track array embedded in a watch page.
func captionTracks(page string) ([]track, error) {
	i := strings.Index(page, captionTracksMarker)
	if i < 0 {
		return nil, ErrNoTranscript
	}
	var tracks []track
	dec := json.NewDecoder(strings.NewReader(page[i+len(captionTracksMarker):]))
	if err := dec.Decode(&tracks); err != nil {
		return nil, fmt.Errorf("youtube: decode caption tracks: %w", err)
	}
	return tracks, nil
}

// pickTrack prefers manual captions over generated ones within a language.
func pickTrack(tracks []track, languages []string) (track, bool) {
	for _, lang := range languages {
		var generated *track
		for i := range tracks {
			if tracks[i].LanguageCode != lang {
				continue
			}
			if tracks[i].Kind != "asr" {
				return tracks[i], true
			}
			if generated == nil {
				generated = &tracks[i]
			}
		}
		if generated != nil {
			return *generated, true
		}
	}
	return track{}, false
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func parseTranscript(raw string) (string, error) {
	var tt timedText
	if err := xml.Unmarshal([]byte(raw), &tt); err != nil {
		return "", fmt.Errorf("youtube: decode transcript: %w", err)
	}
	parts := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		parts = append(parts, html.UnescapeString(t.Value))
	}
	return strings.Join(parts, " "), nil
}
