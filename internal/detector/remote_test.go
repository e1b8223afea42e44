package detector_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/motion"
	"github.com/kikiluvv/actionseg/internal/motion/motiontest"
	"github.com/kikiluvv/actionseg/internal/segments"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteConfig(endpoint string) detector.Config {
	cfg := burstConfig()
	cfg.Remote = detector.RemoteConfig{
		Enabled:  true,
		Endpoint: endpoint,
		APIKey:   "secret",
		Timeout:  5 * time.Second,
	}
	return cfg
}

func newRemote(t *testing.T, cfg detector.Config, build func() *motiontest.Decoder) *detector.Detector {
	t.Helper()
	d, err := detector.New(zerolog.Nop(), cfg,
		detector.WithOpener(motiontest.Factory(func() motion.Decoder { return build() })),
		detector.WithFlowEstimator(motiontest.DiffFlow{}),
	)
	require.NoError(t, err)
	return d
}

func TestRemoteRequestAndResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "15", r.FormValue(detector.FieldTargetDuration))
		assert.Equal(t, "15", r.FormValue(detector.FieldMinDuration))
		assert.Equal(t, "60", r.FormValue(detector.FieldMaxDuration))

		file, header, err := r.FormFile(detector.FieldVideo)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "clip.mp4", header.Filename)
		assert.Equal(t, "not really a video", string(body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"segments":[
			{"start_time": 3, "end_time": 21.5, "action_score": 0.91, "confidence": 0.8},
			{"start_time": 40, "end_time": 55}
		]}`)
	}))
	defer srv.Close()

	d := newRemote(t, remoteConfig(srv.URL+"/"), staticVideo)
	assert.Equal(t, "remote+local", d.Strategy())

	res, err := d.Detect(context.Background(), videoFile(t))
	require.NoError(t, err)
	require.Equal(t, segments.OutcomeFound, res.Outcome)
	assert.Equal(t, segments.SourceRemote, res.Source)
	assert.Equal(t, []segments.Segment{
		segments.New(3, 21.5, 0.91, 0.8),
		segments.New(40, 55, 0.5, 0.5),
	}, res.Segments)
}

func TestRemoteEmptyListIsTrusted(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"segments":[]}`)
	}))
	defer srv.Close()

	res, err := newRemote(t, remoteConfig(srv.URL), burstVideo).Detect(context.Background(), videoFile(t))
	require.NoError(t, err)
	assert.Equal(t, segments.SourceRemote, res.Source)
	assert.Equal(t, segments.OutcomeNoQualifyingWindow, res.Outcome)
	assert.Empty(t, res.Segments)
}

func TestRemoteFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	local, err := newLocal(t, burstConfig(), burstVideo).Detect(context.Background(), "burst.mp4")
	require.NoError(t, err)
	require.True(t, local.OK())

	leaky := `{"segments":[{"start_time": 1, "end_time": 2, "action_score": 9, "confidence": 9}]}`

	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, leaky)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad key", http.StatusUnauthorized)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"segments": [`)
			},
		},
		{
			name: "missing bounds",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"segments":[{"start_time": 4, "action_score": 1}]}`)
			},
		},
		{
			name: "inverted bounds",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"segments":[{"start_time": 9, "end_time": 4}]}`)
			},
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer srv.Close()

			cfg := remoteConfig(srv.URL)
			if tt.timeout > 0 {
				cfg.Remote.Timeout = tt.timeout
			}

			res, err := newRemote(t, cfg, burstVideo).Detect(context.Background(), videoFile(t))
			require.NoError(t, err)

			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, segments.SourceLocal, res.Source)
			assert.Equal(t, local.Outcome, res.Outcome)
			assert.Equal(t, local.Segments, res.Segments)
		})
	}
}

func TestRemoteUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := newRemote(t, remoteConfig(url), burstVideo).Detect(context.Background(), videoFile(t))
	require.NoError(t, err)
	assert.Equal(t, segments.SourceLocal, res.Source)
	assert.True(t, res.OK())
}

func TestRemoteProviderReportsUnavailable(t *testing.T) {
	t.Parallel()

	p := detector.NewRemoteProvider(zerolog.Nop(), remoteConfig("http://127.0.0.1:1"), nil)
	assert.Equal(t, "remote", p.Name())

	res, err := p.Detect(context.Background(), "/does/not/exist.mp4")
	require.NoError(t, err)
	assert.Equal(t, segments.OutcomeRemoteUnavailable, res.Outcome)
	assert.Error(t, res.Reason)
}

func TestAnalyzeResponseRoundTrip(t *testing.T) {
	t.Parallel()

	segs := []segments.Segment{segments.New(1, 16, 0.7, 1), segments.New(20, 41, 0.4, 0.6)}
	data, err := json.Marshal(detector.NewAnalyzeResponse(segs))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"start_time":1`)

	var resp detector.AnalyzeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.Len(t, resp.Segments, 2)
	for i, w := range resp.Segments {
		got, err := w.Segment()
		require.NoError(t, err)
		assert.Equal(t, segs[i], got)
	}
}
