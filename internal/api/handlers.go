// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/ManuGH/isic-scoring/internal/fsutil"
	"github.com/ManuGH/isic-scoring/internal/jobs"
	"github.com/ManuGH/isic-scoring/internal/log"
	"github.com/ManuGH/isic-scoring/internal/score"
	"github.com/ManuGH/isic-scoring/internal/scorer"
	"github.com/ManuGH/isic-scoring/internal/store"
	"github.com/ManuGH/isic-scoring/internal/submission"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500

	// multipartMemory is the part of a form kept in memory; the rest spills to disk.
	multipartMemory = 32 << 20
	defaultUpload   = "submission.zip"
)

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	ID    string      `json:"id"`
	State store.State `json:"state"`
}

// ListResponse is the body of GET /api/v1/submissions.
type ListResponse struct {
	Submissions []*store.Submission `json:"submissions"`
}

// upload is a multipart submission staged on disk in the layout Unpack expects.
type upload struct {
	task              score.Task
	dir               string
	requireManuscript bool
}

var _ ServerInterface = (*Server)(nil)

// SubmitSubmission stages the upload and queues it for asynchronous scoring.
func (s *Server) SubmitSubmission(w http.ResponseWriter, r *http.Request) {
	up, ok := s.stageUpload(w, r)
	if !ok {
		return
	}

	id, err := s.deps.Queue.Submit(r.Context(), jobs.Job{
		Task:              up.task,
		PredictionDir:     up.dir,
		RequireManuscript: up.requireManuscript,
	})
	if err != nil {
		_ = os.RemoveAll(up.dir)
		switch {
		case errors.Is(err, jobs.ErrTaskNotConfigured):
			writeProblem(w, r, http.StatusUnprocessableEntity, ProblemNotConfigured,
				"Task Not Configured", fmt.Sprintf("Task %s is not enabled on this server.", up.task.Label()))
		case errors.Is(err, jobs.ErrClosed):
			writeProblem(w, r, http.StatusServiceUnavailable, ProblemUnavailable,
				"Service Unavailable", "The server is shutting down.")
		default:
			requestLogger(r, "api").Error().Err(err).Msg("failed to queue submission")
			writeProblem(w, r, http.StatusInternalServerError, ProblemInternal,
				"Internal Server Error", "The submission could not be queued.")
		}
		return
	}

	w.Header().Set("Location", "/api/v1/submissions/"+id)
	writeJSON(w, r, http.StatusAccepted, SubmitResponse{ID: id, State: store.StateQueued})
}

// ScoreSubmission scores the upload in the request, behind the shared
// synchronous limit when one is configured.
func (s *Server) ScoreSubmission(w http.ResponseWriter, r *http.Request) {
	if s.scoreGate != nil {
		s.scoreGate.ServeHTTP(w, r)
		return
	}
	s.scoreSync(w, r)
}

func (s *Server) scoreSync(w http.ResponseWriter, r *http.Request) {
	up, ok := s.stageUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = os.RemoveAll(up.dir) }()

	truthDir := ""
	if s.cfg.TruthDir != nil {
		truthDir = s.cfg.TruthDir(up.task)
	}
	if truthDir == "" {
		writeProblem(w, r, http.StatusUnprocessableEntity, ProblemNotConfigured,
			"Task Not Configured", fmt.Sprintf("Task %s is not enabled on this server.", up.task.Label()))
		return
	}

	res, err := s.deps.Scorer.Score(r.Context(), scorer.Request{
		TruthDir:          truthDir,
		PredictionDir:     up.dir,
		Task:              up.task,
		RequireManuscript: up.requireManuscript,
	})
	if err != nil {
		if score.IsScoreError(err) {
			writeProblem(w, r, http.StatusUnprocessableEntity, ProblemScoring,
				"Submission Rejected", score.Message(err))
			return
		}
		requestLogger(r, "api").Error().Err(err).Msg("synchronous scoring failed")
		writeProblem(w, r, http.StatusInternalServerError, ProblemInternal,
			"Internal Server Error", "Internal error: scoring failed.")
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// GetSubmission returns one submission record.
func (s *Server) GetSubmission(w http.ResponseWriter, r *http.Request, id string) {
	sub, err := s.deps.Store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, r, http.StatusNotFound, ProblemNotFound, "Not Found",
			fmt.Sprintf("No submission with id %q.", id))
		return
	}
	if err != nil {
		requestLogger(r, "api").Error().Err(err).Str(log.FieldSubmissionID, id).Msg("failed to load submission")
		writeProblem(w, r, http.StatusInternalServerError, ProblemInternal, "Internal Server Error", "")
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}

// ListSubmissions returns the newest submissions, capped at maxListLimit.
func (s *Server) ListSubmissions(w http.ResponseWriter, r *http.Request, params ListSubmissionsParams) {
	limit := defaultListLimit
	if params.Limit != nil {
		if *params.Limit < 1 {
			writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request",
				"limit must be a positive integer.")
			return
		}
		limit = min(*params.Limit, maxListLimit)
	}

	subs, err := s.deps.Store.List(r.Context(), limit)
	if err != nil {
		requestLogger(r, "api").Error().Err(err).Msg("failed to list submissions")
		writeProblem(w, r, http.StatusInternalServerError, ProblemInternal, "Internal Server Error", "")
		return
	}
	if subs == nil {
		subs = []*store.Submission{}
	}
	writeJSON(w, r, http.StatusOK, ListResponse{Submissions: subs})
}

// paramError reports a parameter the generated router could not bind.
func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	detail := err.Error()
	var invalid *InvalidParamFormatError
	if errors.As(err, &invalid) && invalid.ParamName == "limit" {
		detail = "limit must be a positive integer."
	}
	writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request", detail)
}

// cappedBody remembers that the upload cap was reached. The multipart parser
// does not always surface the *http.MaxBytesError: a cap inside a part header
// comes back as a textproto error.
type cappedBody struct {
	io.ReadCloser
	exceeded bool
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		b.exceeded = true
	}
	return n, err
}

func (s *Server) tooLarge(w http.ResponseWriter, r *http.Request) {
	writeProblem(w, r, http.StatusRequestEntityTooLarge, ProblemTooLarge, "Payload Too Large",
		fmt.Sprintf("Uploads are limited to %d bytes.", s.cfg.MaxUploadBytes))
}

// bindForm binds the scalar fields of a SubmissionForm from the parsed form.
func bindForm(values map[string][]string) (SubmissionForm, error) {
	var form SubmissionForm
	if err := runtime.BindQueryParameter("form", true, true, "task", values, &form.Task); err != nil {
		return form, &InvalidParamFormatError{ParamName: "task", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "require_manuscript", values, &form.RequireManuscript); err != nil {
		return form, &InvalidParamFormatError{ParamName: "require_manuscript", Err: err}
	}
	return form, nil
}

// stageUpload parses the multipart form and writes the prediction file (and
// an optional manuscript under the manuscript directory) into a fresh
// directory. On failure it has already written the problem response.
func (s *Server) stageUpload(w http.ResponseWriter, r *http.Request) (upload, bool) {
	var body *cappedBody
	if s.cfg.MaxUploadBytes > 0 {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			s.tooLarge(w, r)
			return upload{}, false
		}
		body = &cappedBody{ReadCloser: http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)}
		r.Body = body
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || (body != nil && body.exceeded) {
			s.tooLarge(w, r)
			return upload{}, false
		}
		writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request",
			"Expected a multipart/form-data body.")
		return upload{}, false
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	form, err := bindForm(r.MultipartForm.Value)
	if err != nil {
		detail := "require_manuscript must be a boolean."
		var invalid *InvalidParamFormatError
		if errors.As(err, &invalid) && invalid.ParamName == "task" {
			detail = "The form field \"task\" is required."
		}
		writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request", detail)
		return upload{}, false
	}

	task, err := score.ParseTask(form.Task)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request", score.Message(err))
		return upload{}, false
	}

	requireManuscript := s.cfg.RequireManuscript
	if form.RequireManuscript != nil {
		requireManuscript = *form.RequireManuscript
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, ProblemBadRequest, "Bad Request",
			"The form field \"file\" is required.")
		return upload{}, false
	}
	defer func() { _ = file.Close() }()

	dir, err := os.MkdirTemp(s.cfg.ScratchDir, "isic-upload-*")
	if err != nil {
		requestLogger(r, "api").Error().Err(err).Msg("failed to create upload directory")
		writeProblem(w, r, http.StatusInternalServerError, ProblemInternal, "Internal Server Error", "")
		return upload{}, false
	}

	if err := stageFiles(r, dir, header, file); err != nil {
		_ = os.RemoveAll(dir)
		requestLogger(r, "api").Error().Err(err).Msg("failed to stage upload")
		writeProblem(w, r, http.StatusInternalServerError, ProblemInternal, "Internal Server Error", "")
		return upload{}, false
	}

	return upload{task: task, dir: dir, requireManuscript: requireManuscript}, true
}

func stageFiles(r *http.Request, dir string, header *multipart.FileHeader, file multipart.File) error {
	if err := fsutil.WriteFrom(filepath.Join(dir, partName(header, defaultUpload)), file); err != nil {
		return err
	}

	manuscript, mh, err := r.FormFile("manuscript")
	if errors.Is(err, http.ErrMissingFile) {
		return nil
	}
	if err != nil {
		return err
	}
	defer func() { _ = manuscript.Close() }()

	mdir := filepath.Join(dir, submission.ManuscriptDir)
	if err := os.Mkdir(mdir, 0o750); err != nil {
		return err
	}
	return fsutil.WriteFrom(filepath.Join(mdir, partName(mh, "manuscript.pdf")), manuscript)
}

// partName reduces a client-supplied file name to a safe base name.
func partName(h *multipart.FileHeader, fallback string) string {
	name := filepath.Base(strings.ReplaceAll(h.Filename, "\\", "/"))
	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}
