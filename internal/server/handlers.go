package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kikiluvv/actionseg/internal/detector"
	"github.com/kikiluvv/actionseg/internal/pipeline"
	"github.com/kikiluvv/actionseg/pkg/util"
)

// memoryLimit is how much of a multipart form is buffered before
// spilling to disk
const memoryLimit = 32 << 20

type analyzeResponse struct {
	detector.AnalyzeResponse
	RunID   string `json:"run_id"`
	Outcome string `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.APIKey)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("invalid or missing bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadMB<<20)
	}

	if err := r.ParseMultipartForm(memoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d MB", s.cfg.MaxUploadMB))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts := pipeline.AnalyzeOptions{
		// this server is the remote; never forward again
		LocalOnly:  true,
		NoCache:    true,
		NoFallback: true,
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{detector.FieldTargetDuration, &opts.TargetDuration},
		{detector.FieldMinDuration, &opts.MinDuration},
		{detector.FieldMaxDuration, &opts.MaxDuration},
	} {
		raw := r.FormValue(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%s must be a positive number, got %q", f.name, raw))
			return
		}
		*f.dst = v
	}

	file, header, err := r.FormFile(detector.FieldVideo)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("missing %q file: %w", detector.FieldVideo, err))
		return
	}
	defer file.Close()

	tmp, err := util.TempFile(s.cfg.TempDir, "upload-", util.VideoExtension(header.Filename, ".mp4"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("create temp file: %w", err))
		return
	}
	defer util.CleanupFiles(tmp.Name())

	_, err = io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("store upload: %w", err))
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), tmp.Name(), opts)
	switch {
	case errors.Is(err, detector.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		s.logger.Warn().Err(err).Str("upload", header.Filename).Msg("analysis failed")
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		AnalyzeResponse: detector.NewAnalyzeResponse(report.Segments),
		RunID:           report.RunID,
		Outcome:         report.Outcome.String(),
	})
}
