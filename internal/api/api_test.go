package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/enrich-cli/internal/export"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/store"
)

type recordingRunner struct {
	mu    sync.Mutex
	calls map[string][]string
}

func (r *recordingRunner) Start(_ context.Context, jobID string, companies []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string][]string)
	}
	r.calls[jobID] = companies
	return nil
}

func (r *recordingRunner) companies(jobID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[jobID]
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", filename, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestHealth(t *testing.T) {
	srv := New(store.NewMemory(), &recordingRunner{})
	rec := get(srv.Handler(), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestUpload_AcceptsCSV(t *testing.T) {
	st := store.NewMemory()
	runner := &recordingRunner{}
	srv := New(st, runner)

	rec := upload(t, srv.Handler(), "companies.csv", []byte("Company\nAcme Corp\nBeta Inc\nacme corp\n"))
	srv.Wait()

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, model.JobPending, resp.Status)
	assert.Equal(t, []string{"acme corp", "beta inc"}, runner.companies(resp.JobID))

	job, err := st.GetJob(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Total)
}

func TestUpload_Rejections(t *testing.T) {
	srv := New(store.NewMemory(), &recordingRunner{})
	h := srv.Handler()

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     string
	}{
		{"unsupported", "companies.pdf", []byte("acme"), "only .csv and .xlsx files are supported"},
		{"empty", "companies.csv", nil, "uploaded file is empty"},
		{"no names", "companies.csv", []byte("\n ,x\n"), "no valid company names found in first column"},
		{"corrupt workbook", "companies.xlsx", []byte("not a zip"), "could not parse uploaded file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, h, tt.filename, tt.content)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeError(t, rec))
		})
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	srv := New(store.NewMemory(), &recordingRunner{})
	body, ct := multipartBody(t, "other", "companies.csv", []byte("acme"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec), "file")
}

func TestUpload_RateLimited(t *testing.T) {
	srv := New(store.NewMemory(), &recordingRunner{}, WithUploadRate(1))
	h := srv.Handler()

	for i := 0; i < uploadBurst; i++ {
		rec := upload(t, h, "companies.csv", []byte("acme\n"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := upload(t, h, "companies.csv", []byte("acme\n"))
	srv.Wait()

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestUpload_TooLarge(t *testing.T) {
	srv := New(store.NewMemory(), &recordingRunner{}, WithMaxUploadBytes(64))
	rec := upload(t, srv.Handler(), "companies.csv", bytes.Repeat([]byte("acme corp\n"), 100))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobStatus(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	job, err := st.CreateJob(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, st.SetStatus(ctx, job.ID, model.JobProcessing, ""))
	require.NoError(t, st.AppendResult(ctx, job.ID, model.FailedResult("acme")))

	h := New(st, &recordingRunner{}).Handler()

	rec := get(h, "/job/"+job.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, model.JobStatusResponse{
		JobID:        job.ID,
		Status:       model.JobProcessing,
		Total:        2,
		Processed:    1,
		FailureCount: 1,
	}, resp)

	rec = get(h, "/job/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", decodeError(t, rec))
}

func TestListJobs(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	a, err := st.CreateJob(ctx, 1)
	require.NoError(t, err)
	b, err := st.CreateJob(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, st.SetStatus(ctx, b.ID, model.JobFailed, "boom"))

	h := New(st, &recordingRunner{}).Handler()

	rec := get(h, "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []model.JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, 2)

	rec = get(h, "/jobs?status=FAILED")
	require.Equal(t, http.StatusOK, rec.Code)
	var failed []model.JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&failed))
	require.Len(t, failed, 1)
	assert.Equal(t, b.ID, failed[0].JobID)
	assert.Equal(t, "boom", failed[0].Error)

	rec = get(h, "/jobs?status=PENDING&limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []model.JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, a.ID, pending[0].JobID)

	for _, q := range []string{"status=DONE", "limit=-1", "offset=x"} {
		rec = get(h, "/jobs?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestListJobs_EmptyIsArray(t *testing.T) {
	rec := get(New(store.NewMemory(), &recordingRunner{}).Handler(), "/jobs")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func seededJob(t *testing.T) (*store.Memory, string) {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()
	job, err := st.CreateJob(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, st.SetStatus(ctx, job.ID, model.JobProcessing, ""))
	require.NoError(t, st.AppendResult(ctx, job.ID, model.CompanyResult{
		Company: "acme corp", Website: "https://acmecorp.com", WebsiteFound: true,
		Source: model.SourceDomainGuess, Status: model.ResultSuccess,
	}))
	require.NoError(t, st.AppendResult(ctx, job.ID, model.FailedResult("beta inc")))
	require.NoError(t, st.SetStatus(ctx, job.ID, model.JobCompleted, ""))
	return st, job.ID
}

func TestDownload_CSV(t *testing.T) {
	st, id := seededJob(t)
	h := New(st, &recordingRunner{}).Handler()

	for _, target := range []string{"/download/" + id, "/download/" + id + "?format=csv"} {
		rec := get(h, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="company_enrichment_`+id+`.csv"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t,
			"company,website,website_found,phone,phone_found,email,email_found,source,status\n"+
				"acme corp,https://acmecorp.com,true,,false,,false,domain_guess,SUCCESS\n"+
				"beta inc,,false,,false,,false,,FAILED\n",
			rec.Body.String())
	}
}

func TestDownload_XLSX(t *testing.T) {
	st, id := seededJob(t)
	rec := get(New(st, &recordingRunner{}).Handler(), "/download/"+id+"?format=xlsx")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "company_enrichment_"+id+".xlsx")

	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	sheet := f.Sheet[export.SheetName]
	require.NotNil(t, sheet)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "company", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "acme corp", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "FAILED", sheet.Rows[2].Cells[8].String())
}

func TestDownload_Errors(t *testing.T) {
	st, id := seededJob(t)
	h := New(st, &recordingRunner{}).Handler()

	rec := get(h, "/download/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", decodeError(t, rec))

	rec = get(h, "/download/missing?format=xlsx")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(h, "/download/"+id+"?format=pdf")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := New(store.NewMemory(), &recordingRunner{}).Handler()
	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

type guessEverything struct{}

func (guessEverything) DetectWebsite(_ context.Context, company string) (model.WebsiteLookup, error) {
	return model.WebsiteLookup{Found: true, URL: "https://" + company + ".com", Source: model.SourceDomainGuess}, nil
}

type noContact struct{}

func (noContact) LookupContact(context.Context, string) (model.ContactLookup, error) {
	return model.ContactLookup{Source: model.SourceNotConfigured}, nil
}

func TestUploadThroughPipeline(t *testing.T) {
	st := store.NewMemory()
	factory := func(context.Context) (*pipeline.Resolvers, error) {
		return &pipeline.Resolvers{Website: guessEverything{}, Contact: noContact{}}, nil
	}
	orch := pipeline.New(st, factory, pipeline.Options{BatchSize: 50})
	srv := New(st, orch)
	h := srv.Handler()

	rec := upload(t, h, "companies.csv", []byte("acme\nbeta\n"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	srv.Wait()

	rec = get(h, "/job/"+resp.JobID)
	var status model.JobStatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, model.JobCompleted, status.Status)
	assert.Equal(t, 2, status.Processed)
	assert.Equal(t, 2, status.SuccessCount)

	rec = get(h, "/download/"+resp.JobID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://acme.com,true")
	assert.Contains(t, rec.Body.String(), "https://beta.com,true")
}
