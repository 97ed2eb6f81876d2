package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/export"
	"github.com/sells-group/enrich-cli/internal/fetcher"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// UploadResponse acknowledges an accepted upload.
type UploadResponse struct {
	JobID  string          `json:"job_id"`
	Total  int             `json:"total"`
	Status model.JobStatus `json:"status"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close() //nolint:errcheck

	names, err := fetcher.LoadCompanyNames(header.Filename, file)
	if err != nil {
		zap.L().Debug("api: rejected upload", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, http.StatusBadRequest, uploadErrorMessage(err))
		return
	}

	job, err := s.store.CreateJob(r.Context(), len(names))
	if err != nil {
		zap.L().Error("api: create job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create job")
		return
	}

	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()
		if err := s.runner.Start(s.baseCtx, job.ID, names); err != nil {
			zap.L().Error("api: job run failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}()

	zap.L().Info("api: job accepted",
		zap.String("job_id", job.ID),
		zap.String("filename", header.Filename),
		zap.Int("total", job.Total),
	)
	writeJSON(w, http.StatusOK, UploadResponse{JobID: job.ID, Total: job.Total, Status: job.Status})
}

func uploadErrorMessage(err error) string {
	switch {
	case errors.Is(err, fetcher.ErrUnsupportedFormat):
		return "only .csv and .xlsx files are supported"
	case errors.Is(err, fetcher.ErrEmptyFile):
		return "uploaded file is empty"
	case errors.Is(err, fetcher.ErrNoCompanies):
		return "no valid company names found in first column"
	default:
		return "could not parse uploaded file"
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job.StatusResponse())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseJobFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobs, err := s.store.ListJobs(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list jobs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list jobs")
		return
	}

	out := make([]model.JobStatusResponse, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobs[i].StatusResponse())
	}
	writeJSON(w, http.StatusOK, out)
}

func parseJobFilter(r *http.Request) (store.JobFilter, error) {
	q := r.URL.Query()
	filter := store.JobFilter{Status: model.JobStatus(q.Get("status"))}

	switch filter.Status {
	case "", model.JobPending, model.JobProcessing, model.JobCompleted, model.JobFailed:
	default:
		return filter, eris.Errorf("unknown status %q", filter.Status)
	}

	var err error
	if filter.Limit, err = nonNegative(q, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = nonNegative(q, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func nonNegative(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = string(fetcher.FormatCSV)
	}

	var (
		body        []byte
		contentType string
		err         error
	)
	switch fetcher.Format(format) {
	case fetcher.FormatCSV:
		contentType = contentTypeCSV
		body, err = s.store.Export(r.Context(), chi.URLParam(r, "jobID"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
	case fetcher.FormatXLSX:
		job, ok := s.lookupJob(w, r)
		if !ok {
			return
		}
		contentType = contentTypeXLSX
		body, err = export.XLSX(job.Results)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}
	if err != nil {
		zap.L().Error("api: export", zap.String("format", format), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not export results")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="company_enrichment_%s.%s"`, jobID, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body) //nolint:errcheck
}

// lookupJob fetches the job named in the URL, writing 404/500 itself when
// it cannot.
func (s *Server) lookupJob(w http.ResponseWriter, r *http.Request) (*model.Job, bool) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	case err != nil:
		zap.L().Error("api: get job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not read job")
		return nil, false
	}
	return job, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
