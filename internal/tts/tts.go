// Package tts synthesizes speech with Google Cloud Text-to-Speech and keeps
// the audio in a content-addressed file cache.
package tts

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	// DefaultEndpoint is the synthesize method of the REST API.
	DefaultEndpoint = "https://texttospeech.googleapis.com/v1/text:synthesize"
	// DefaultVoice is the voice used when none is configured.
	DefaultVoice = "en-US-Chirp3-HD-Puck"
	// DefaultLanguageCode matches DefaultVoice.
	DefaultLanguageCode = "en-US"
	// DefaultCacheDir holds synthesized audio.
	DefaultCacheDir = "audio_cache"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	requestTimeout     = 60 * time.Second
)

// ErrNoAudio is returned when the API answers without audio content.
var ErrNoAudio = errors.New("tts: response has no audio content")

// Config configures a Synthesizer.
type Config struct {
	CacheDir     string
	Voice        string
	LanguageCode string
	Endpoint     string
	// Project is billed for the request. Defaults to the credentials' project.
	Project string
}

// Synthesizer turns text into LINEAR16 wav files named by the text's md5 hash.
type Synthesizer struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New creates a Synthesizer authenticated with application default credentials.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Synthesizer, error) {
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("tts: find credentials: %w", err)
	}
	if cfg.Project == "" {
		cfg.Project = creds.ProjectID
	}
	return NewWithTokenSource(cfg, creds.TokenSource, logger), nil
}

// NewWithTokenSource creates a Synthesizer that authenticates with ts.
func NewWithTokenSource(cfg Config, ts oauth2.TokenSource, logger *zap.Logger) *Synthesizer {
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultLanguageCode
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		cfg: cfg,
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
		logger: logger,
	}
}

// Hash returns the cache key of text.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Path returns where the audio for hash is stored.
func (s *Synthesizer) Path(hash string) string {
	return filepath.Join(s.cfg.CacheDir, hash+".wav")
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

// Synthesize returns the hash of text, calling the API only when the audio
// file is not cached yet.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	hash := Hash(text)
	path := s.Path(hash)

	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("audio cache hit", zap.String("hash", hash))
		return hash, nil
	}
	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("tts: create cache dir: %w", err)
	}

	audio, err := s.request(ctx, text)
	if err != nil {
		return "", err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		return "", fmt.Errorf("tts: write audio: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("tts: write audio: %w", err)
	}

	s.logger.Info("audio synthesized", zap.String("hash", hash), zap.Int("bytes", len(audio)))
	return hash, nil
}

func (s *Synthesizer) request(ctx context.Context, text string) ([]byte, error) {
	var payload synthesizeRequest
	payload.Input.Text = text
	payload.Voice.LanguageCode = s.cfg.LanguageCode
	payload.Voice.Name = s.cfg.Voice
	payload.AudioConfig.AudioEncoding = "LINEAR16"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tts: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.Project != "" {
		req.Header.Set("X-Goog-User-Project", s.cfg.Project)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: synthesize: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tts: synthesize: status %d: %s", resp.StatusCode, data)
	}

	var out struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}
	if out.AudioContent == "" {
		return nil, ErrNoAudio
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("tts: decode audio: %w", err)
	}
	return audio, nil
}
