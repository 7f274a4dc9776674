package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds the multipart form we are willing to buffer.
const maxUploadBytes = 25 << 20

// JobCreate accepts a multipart form with an image file and an instruction
// and registers a new job awaiting payment.
func (a *App) JobCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "validation_error", "could not read image file")
		return
	}

	instruction := r.FormValue("instruction")

	job, err := a.Jobs.CreateJob(r.Context(), userID, header.Filename, header.Header.Get("Content-Type"), data, instruction)
	if err != nil {
		a.domainError(w, r, err)
		return
	}

	a.json(w, http.StatusCreated, map[string]any{
		"job_id":          job.ID,
		"input_reference": job.InputURL,
		"status":          string(job.Status),
		"payment_status":  string(job.PaymentStatus),
	})
}

// JobList returns the caller's jobs, newest first.
func (a *App) JobList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Jobs.ListJobs(r.Context(), a.currentUserID(r))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// JobGet returns a single job owned by the caller.
func (a *App) JobGet(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.GetJob(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, job)
}

// JobGenerate triggers image generation for a paid job. The call blocks
// until the inference provider answers, so it runs under the long write
// timeout configured on the server.
func (a *App) JobGenerate(w http.ResponseWriter, r *http.Request) {
	outputURL, err := a.Jobs.Generate(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r))
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"output_reference": outputURL})
}

// JobDelete removes a job record and its stored objects.
func (a *App) JobDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.Jobs.Delete(r.Context(), chi.URLParam(r, "id"), a.currentUserID(r)); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"deleted": true})
}
