// Package api exposes the recording archive over HTTP: upload a CSV for
// analysis, browse archived recordings, fetch rendered plots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ubcspin/REMO1-dataProcessing/pkg/analysis"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/archive"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/plot"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/recording"
	"github.com/ubcspin/REMO1-dataProcessing/pkg/types"
)

// Server implements the HTTP viewer
type Server struct {
	archive  archive.Archive
	analyzer *analysis.Analyzer
	loadOpts recording.LoadOptions
	addr     string
	server   *http.Server
}

// NewServer creates a viewer server over an archive
func NewServer(addr string, store archive.Archive, analyzer *analysis.Analyzer, loadOpts recording.LoadOptions) *Server {
	return &Server{
		archive:  store,
		analyzer: analyzer,
		loadOpts: loadOpts,
		addr:     addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler builds the server's HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/recordings", s.handleRecordings)
	mux.HandleFunc("/api/v1/recordings/", s.handleRecording)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// handleRecordings handles POST (analyze and archive a CSV body) and GET
// (list archived recordings by tag selector and time range)
func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleUpload(w, r)
	case http.MethodGet:
		s.handleList(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// uploadResponse is returned after a successful upload
type uploadResponse struct {
	ID         string         `json:"id"`
	SampleRate float64        `json:"sample_rate"`
	Samples    int            `json:"samples"`
	Measures   types.Measures `json:"measures"`
}

// handleUpload analyzes a CSV request body and archives the result.
// Tags come from "tag" query parameters in k=v form; the source name from
// the "source" parameter.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	opts := s.loadOpts
	opts.Tags = parseTagParams(r.URL.Query()["tag"])

	rec, err := recording.Parse(r.Body, opts)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid recording: %v", err), http.StatusBadRequest)
		return
	}
	rec.Source = r.URL.Query().Get("source")
	if rec.Source == "" {
		rec.Source = "upload"
	}

	res, err := s.analyzer.Run(rec.Voltages(), rec.SampleRate)
	if err != nil {
		if errors.Is(err, analysis.ErrNoPeakFit) {
			http.Error(w, fmt.Sprintf("Analysis failed: %v", err), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, fmt.Sprintf("Analysis failed: %v", err), http.StatusInternalServerError)
		return
	}

	entry := &types.ArchiveEntry{
		Recording:     *rec,
		Measures:      res.Measures.Sanitized(),
		Peaks:         res.AcceptedPeaks,
		RejectedPeaks: res.RejectedPeaks,
	}

	if err := s.archive.Store(r.Context(), entry); err != nil {
		http.Error(w, fmt.Sprintf("Store failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(uploadResponse{
		ID:         rec.ID,
		SampleRate: rec.SampleRate,
		Samples:    len(rec.Samples),
		Measures:   entry.Measures,
	})
}

// listEntry is a list row: metadata and measures without the samples
type listEntry struct {
	ID         string            `json:"id"`
	Source     string            `json:"source"`
	Tags       map[string]string `json:"tags,omitempty"`
	SampleRate float64           `json:"sample_rate"`
	Measures   types.Measures    `json:"measures"`
}

// handleList lists archived recordings
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	req := &types.QueryRequest{
		Selectors: parseTagParams(r.URL.Query()["tag"]),
	}

	var err error
	if req.StartTime, err = parseMillis(r.URL.Query().Get("start")); err != nil {
		http.Error(w, "Invalid start time", http.StatusBadRequest)
		return
	}
	if req.EndTime, err = parseMillis(r.URL.Query().Get("end")); err != nil {
		http.Error(w, "Invalid end time", http.StatusBadRequest)
		return
	}

	result, err := s.archive.Query(r.Context(), req)
	if err != nil {
		http.Error(w, fmt.Sprintf("Query failed: %v", err), http.StatusInternalServerError)
		return
	}

	entries := make([]listEntry, 0, len(result.Entries))
	for _, e := range result.Entries {
		entries = append(entries, listEntry{
			ID:         e.Recording.ID,
			Source:     e.Recording.Source,
			Tags:       e.Recording.Tags,
			SampleRate: e.Recording.SampleRate,
			Measures:   e.Measures.Sanitized(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"recordings": entries,
	})
}

// handleRecording serves a single recording: the full entry as JSON, or
// the rendered plot under the /plot suffix
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/recordings/")
	id, wantPlot := rest, false
	if strings.HasSuffix(rest, "/plot") {
		id = strings.TrimSuffix(rest, "/plot")
		wantPlot = true
	}
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	entry, err := s.archive.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, fmt.Sprintf("Read failed: %v", err), http.StatusInternalServerError)
		return
	}

	if wantPlot {
		s.servePlot(w, entry)
		return
	}

	entry.Measures = entry.Measures.Sanitized()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// servePlot renders an archived entry as a PNG chart
func (s *Server) servePlot(w http.ResponseWriter, entry *types.ArchiveEntry) {
	res := &analysis.Result{
		SampleRate:    entry.Recording.SampleRate,
		Signal:        entry.Recording.Voltages(),
		AcceptedPeaks: entry.Peaks,
		RejectedPeaks: entry.RejectedPeaks,
		Measures:      entry.Measures,
	}

	opts := plot.DefaultOptions()
	opts.Title = entry.Recording.Source

	w.Header().Set("Content-Type", "image/png")
	if err := plot.Render(w, res, opts); err != nil {
		http.Error(w, fmt.Sprintf("Render failed: %v", err), http.StatusInternalServerError)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// parseTagParams parses repeated k=v tag parameters
func parseTagParams(params []string) map[string]string {
	if len(params) == 0 {
		return nil
	}
	tags := make(map[string]string, len(params))
	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			continue
		}
		tags[k] = v
	}
	return tags
}

// parseMillis parses an optional millisecond timestamp parameter
func parseMillis(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
