package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
)

// maxErrorBody caps how much of a failed response is kept for logs
const maxErrorBody = 4 << 10

// RemoteProvider uploads the video to an analyze service and trusts the
// segments it returns. Any failure is reported as
// OutcomeRemoteUnavailable so a Fallback can take over.
type RemoteProvider struct {
	logger zerolog.Logger
	client *http.Client
	cfg    Config
}

// NewRemoteProvider builds the remote strategy. A nil client gets one
// bounded by cfg.Remote.Timeout.
func NewRemoteProvider(logger zerolog.Logger, cfg Config, client *http.Client) *RemoteProvider {
	if client == nil {
		client = &http.Client{Timeout: cfg.Remote.Timeout}
	}
	return &RemoteProvider{
		logger: logger.With().Str("component", "remote-detector").Logger(),
		client: client,
		cfg:    cfg,
	}
}

// Name implements Provider
func (p *RemoteProvider) Name() string {
	return string(segments.SourceRemote)
}

// Detect implements Provider
func (p *RemoteProvider) Detect(ctx context.Context, videoPath string) (segments.Result, error) {
	segs, err := p.analyze(ctx, videoPath)
	if err != nil {
		return segments.Empty(segments.SourceRemote, segments.OutcomeRemoteUnavailable, err), nil
	}

	p.logger.Info().
		Str("video", videoPath).
		Int("segments", len(segs)).
		Msg("remote detection complete")

	return segments.Found(segments.SourceRemote, segs), nil
}

func (p *RemoteProvider) analyze(ctx context.Context, videoPath string) ([]segments.Segment, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	form := multipart.NewWriter(pw)

	go func() {
		defer file.Close()
		pw.CloseWithError(p.writeForm(form, file, filepath.Base(videoPath)))
	}()

	url := strings.TrimRight(p.cfg.Remote.Endpoint, "/") + "/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+p.cfg.Remote.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("analyze returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding analyze response: %w", err)
	}

	segs := make([]segments.Segment, 0, len(result.Segments))
	for i, w := range result.Segments {
		seg, err := w.Segment()
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func (p *RemoteProvider) writeForm(form *multipart.Writer, video io.Reader, name string) error {
	fields := []struct {
		key   string
		value float64
	}{
		{FieldTargetDuration, p.cfg.TargetDuration},
		{FieldMinDuration, p.cfg.MinDuration},
		{FieldMaxDuration, p.cfg.MaxDuration},
	}
	for _, f := range fields {
		if err := form.WriteField(f.key, strconv.FormatFloat(f.value, 'f', -1, 64)); err != nil {
			return fmt.Errorf("write %s: %w", f.key, err)
		}
	}

	part, err := form.CreateFormFile(FieldVideo, name)
	if err != nil {
		return fmt.Errorf("create video part: %w", err)
	}
	if _, err := io.Copy(part, video); err != nil {
		return fmt.Errorf("copy video: %w", err)
	}
	return form.Close()
}
