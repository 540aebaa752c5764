package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"loraset/core/dataset"
	"loraset/core/review"
	"loraset/logger"
	"loraset/model"
)

// DatasetView is the review table.
type DatasetView struct {
	Metadata model.DatasetMetadata `json:"metadata"`
	Rows     []dataset.PreviewRow  `json:"rows"`
	Total    int                   `json:"total"`
	Labeled  int                   `json:"labeled"`
	Dir      string                `json:"dir"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

// writeStatus writes a reviewer status; failed operations map their error to an
// HTTP code.
func writeStatus(w http.ResponseWriter, st model.Status, err error) {
	if err != nil {
		if st.Message == "" {
			st = model.FailureStatus(err)
		}
		writeJSON(w, statusCode(err), st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidIndex), errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotADirectory), errors.Is(err, model.ErrParse),
		errors.Is(err, model.ErrNoSamples), errors.Is(err, model.ErrNoLabeledSamples):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrBackendNotReady):
		return http.StatusServiceUnavailable
	case errors.Is(err, errJobRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// lockBuilder takes the builder lock unless a batch job owns it.
func (s *Server) lockBuilder(w http.ResponseWriter) bool {
	if s.jobs.running() || !s.mu.TryLock() {
		writeStatus(w, model.Failure("%v", errJobRunning), errJobRunning)
		return false
	}
	return true
}

func sampleIndex(r *http.Request) int {
	idx, _ := strconv.Atoi(mux.Vars(r)["idx"])
	return idx
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"jobRunning": s.jobs.running(),
		"clients":    s.hub.ClientCount(),
	})
}

func (s *Server) GetDatasetHandler(w http.ResponseWriter, r *http.Request) {
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()
	b := s.deps.Builder
	writeJSON(w, http.StatusOK, DatasetView{
		Metadata: b.Metadata(),
		Rows:     b.PreviewRows(),
		Total:    b.SampleCount(),
		Labeled:  b.LabeledCount(),
		Dir:      b.CurrentDir(),
	})
}

func (s *Server) ScanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dir string `json:"dir"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	report, err := s.deps.Builder.ScanDirectory(req.Dir)
	if err != nil {
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	writeStatus(w, report.Status(), nil)
}

func (s *Server) SaveHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	st, err := s.deps.Builder.Save(req.Path, req.Name)
	if err == nil {
		s.syncCatalog(r.Context())
	}
	writeStatus(w, st, err)
}

func (s *Server) LoadHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	st, err := s.deps.Builder.Load(req.Path)
	writeStatus(w, st, err)
}

func (s *Server) TagHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tag      string            `json:"tag"`
		Position model.TagPosition `json:"position"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Position == "" {
		req.Position = model.TagPrepend
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	if err := s.deps.Builder.SetCustomTag(req.Tag, req.Position); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeStatus(w, model.Success("Tag '%s' applied (%s) to %d samples",
		req.Tag, req.Position, s.deps.Builder.SampleCount()), nil)
}

func (s *Server) InstrumentalHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instrumental bool `json:"instrumental"`
	}
	if !decode(w, r, &req) {
		return
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	s.deps.Builder.SetAllInstrumental(req.Instrumental)
	writeStatus(w, model.Success("All instrumental: %v", req.Instrumental), nil)
}

func (s *Server) GetSampleHandler(w http.ResponseWriter, r *http.Request) {
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	sample, err := s.deps.Builder.Sample(sampleIndex(r))
	if err != nil {
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) UpdateSampleHandler(w http.ResponseWriter, r *http.Request) {
	var u dataset.SampleUpdate
	if !decode(w, r, &u) {
		return
	}
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	sample, err := s.deps.Builder.UpdateSample(sampleIndex(r), u)
	if err != nil {
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	logger.Info("sample edited",
		logger.String("reviewer", ReviewerFromContext(r.Context())),
		logger.String("file", sample.Filename))
	writeJSON(w, http.StatusOK, sample)
}

func (s *Server) SampleDiffHandler(w http.ResponseWriter, r *http.Request) {
	if !s.lockBuilder(w) {
		return
	}
	defer s.mu.Unlock()

	sample, err := s.deps.Builder.Sample(sampleIndex(r))
	if err != nil {
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	segments := review.SampleDiff(sample)
	writeJSON(w, http.StatusOK, map[string]any{
		"changed":  review.Changed(segments),
		"rendered": review.Render(segments),
	})
}

// LabelHandler starts a labeling job over every sample.
func (s *Server) LabelHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FormatLyrics bool `json:"format_lyrics"`
	}
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	if s.deps.Labeler == nil {
		writeStatus(w, model.Failure("labeling engine is not configured"), model.ErrBackendNotReady)
		return
	}
	if !s.lockBuilder(w) {
		return
	}

	opts := s.deps.LabelOptions
	opts.FormatLyrics = req.FormatLyrics
	info, err := s.jobs.start("label", func(ctx context.Context, progress func(string)) model.Status {
		defer s.mu.Unlock()
		opts.Progress = progress
		report, err := s.deps.Labeler.LabelAll(ctx, s.deps.Builder.Samples(), opts)
		if err != nil {
			return model.FailureStatus(err)
		}
		return report.Status()
	})
	if err != nil {
		s.mu.Unlock()
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

// PreprocessHandler starts a preprocessing job over the labeled samples.
func (s *Server) PreprocessHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OutputDir   string  `json:"output_dir"`
		MaxDuration float64 `json:"max_duration"`
	}
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	if s.deps.Preprocessor == nil {
		writeStatus(w, model.Failure("preprocessing backend is not configured"), model.ErrBackendNotReady)
		return
	}
	if !s.lockBuilder(w) {
		return
	}

	opts := s.deps.PreprocessOptions
	if req.OutputDir != "" {
		opts.OutputDir = req.OutputDir
	}
	if req.MaxDuration > 0 {
		opts.MaxDuration = req.MaxDuration
	}
	info, err := s.jobs.start("preprocess", func(ctx context.Context, progress func(string)) model.Status {
		defer s.mu.Unlock()
		opts.Progress = progress
		b := s.deps.Builder
		res, err := s.deps.Preprocessor.Run(ctx, b.Samples(), b.Metadata(), opts)
		if err != nil {
			return model.FailureStatus(err)
		}
		s.attachBundles(ctx, res.Paths)
		return res.Status()
	})
	if err != nil {
		s.mu.Unlock()
		writeStatus(w, model.FailureStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

func (s *Server) JobHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.info())
}

func (s *Server) CancelJobHandler(w http.ResponseWriter, r *http.Request) {
	if !s.jobs.cancel() {
		http.Error(w, "no job is running", http.StatusNotFound)
		return
	}
	writeStatus(w, model.Success("Cancellation requested"), nil)
}

func (s *Server) CatalogHandler(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		http.Error(w, "catalog is not configured", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	f := model.CatalogFilter{
		Dataset:     q.Get("dataset"),
		Language:    q.Get("language"),
		LabeledOnly: q.Get("labeled") == "true",
	}
	if v := q.Get("instrumental"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid instrumental filter %q", v), http.StatusBadRequest)
			return
		}
		f.Instrumental = &b
	}
	if v := q.Get("limit"); v != "" {
		f.Limit, _ = strconv.Atoi(v)
	}
	entries, err := s.deps.Catalog.List(r.Context(), f)
	if err != nil {
		logger.Error("catalog query failed", logger.ErrorField(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// syncCatalog mirrors the builder into the catalog. Catalog errors never fail the
// operation that triggered them. Caller holds s.mu.
func (s *Server) syncCatalog(ctx context.Context) {
	if s.deps.Catalog == nil {
		return
	}
	meta := s.deps.Builder.Metadata()
	if _, err := s.deps.Catalog.Sync(ctx, meta.Name, s.deps.Builder.Samples(), meta.TagPosition); err != nil {
		logger.Warn("catalog sync failed", logger.String("dataset", meta.Name), logger.ErrorField(err))
	}
}

func (s *Server) attachBundles(ctx context.Context, paths []string) {
	if s.deps.Catalog == nil || len(paths) == 0 {
		return
	}
	s.syncCatalog(ctx)
	name := s.deps.Builder.Metadata().Name
	if err := s.deps.Catalog.AttachBundles(ctx, name, paths); err != nil {
		logger.Warn("catalog bundle update failed", logger.String("dataset", name), logger.ErrorField(err))
	}
}
