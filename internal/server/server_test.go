package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/feedback"
	"github.com/RAJARYANSINGH0059/Convolve/internal/agents/ingestion"
	"github.com/RAJARYANSINGH0059/Convolve/internal/config"
	"github.com/RAJARYANSINGH0059/Convolve/internal/domain"
	"github.com/RAJARYANSINGH0059/Convolve/internal/narrator"
	"github.com/RAJARYANSINGH0059/Convolve/internal/pipeline"
)

// --- fakes ---

type fakePatients struct {
	patients  map[uuid.UUID]*domain.PatientRecord
	createErr error
}

func newFakePatients() *fakePatients {
	return &fakePatients{patients: make(map[uuid.UUID]*domain.PatientRecord)}
}

func (f *fakePatients) Create(_ context.Context, patient *domain.PatientRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.patients[patient.ID] = patient
	return nil
}

func (f *fakePatients) GetByID(_ context.Context, id uuid.UUID) (*domain.PatientRecord, error) {
	patient, ok := f.patients[id]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	return patient, nil
}

type fakeReports struct {
	reports   map[uuid.UUID]*domain.ConsolidatedReport
	summaries map[uuid.UUID]*domain.ClinicalIntelligenceSummary
}

func newFakeReports() *fakeReports {
	return &fakeReports{
		reports:   make(map[uuid.UUID]*domain.ConsolidatedReport),
		summaries: make(map[uuid.UUID]*domain.ClinicalIntelligenceSummary),
	}
}

func (f *fakeReports) SaveReport(_ context.Context, report *domain.ConsolidatedReport) error {
	f.reports[report.ID] = report
	return nil
}

func (f *fakeReports) SaveSummary(_ context.Context, summary *domain.ClinicalIntelligenceSummary) error {
	f.summaries[summary.ReportID] = summary
	return nil
}

func (f *fakeReports) GetReport(_ context.Context, id uuid.UUID) (*domain.ConsolidatedReport, error) {
	report, ok := f.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return report, nil
}

func (f *fakeReports) GetSummary(_ context.Context, reportID uuid.UUID) (*domain.ClinicalIntelligenceSummary, error) {
	summary, ok := f.summaries[reportID]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	return summary, nil
}

func (f *fakeReports) ListByPatient(_ context.Context, patientID uuid.UUID) ([]domain.ConsolidatedReport, error) {
	var out []domain.ConsolidatedReport
	for _, r := range f.reports {
		if r.PatientID == patientID {
			out = append(out, *r)
		}
	}
	return out, nil
}

type fakeAudit struct {
	entries []domain.AuditEntry
}

func (f *fakeAudit) Record(_ context.Context, entry *domain.AuditEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAudit) ListByPatient(_ context.Context, patientID uuid.UUID) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, e := range f.entries {
		if e.PatientID == patientID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAudit) operations() []string {
	ops := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		ops = append(ops, e.Operation)
	}
	return ops
}

type fakeIngestor struct {
	err error
}

func (f *fakeIngestor) Ingest(_ context.Context, patientID uuid.UUID, items []ingestion.Item) (*domain.IngestionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IngestionResult{
		PatientID:  patientID,
		TotalItems: len(items),
		ByModality: make(map[domain.Modality][]domain.ModalityResult),
	}, nil
}

type fakeIndexer struct {
	indexed []uuid.UUID
}

func (f *fakeIndexer) Index(_ context.Context, result *domain.IngestionResult) (int, error) {
	f.indexed = append(f.indexed, result.PatientID)
	result.ChunksStored = result.TotalItems
	return result.TotalItems, nil
}

type fakeAnalysis struct {
	jobs     map[uuid.UUID]*domain.AnalysisJob
	startErr error
	started  []pipeline.Request
}

func newFakeAnalysis() *fakeAnalysis {
	return &fakeAnalysis{jobs: make(map[uuid.UUID]*domain.AnalysisJob)}
}

func (f *fakeAnalysis) Start(_ context.Context, req pipeline.Request) (*domain.AnalysisJob, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, req)
	job := &domain.AnalysisJob{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		Status:    domain.JobQueued,
		CreatedAt: time.Now().UTC(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeAnalysis) Job(_ context.Context, id uuid.UUID) (*domain.AnalysisJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

type fakeFeedback struct {
	submitErr error
	submitted []*domain.DoctorFeedback
	stats     *feedback.Stats
}

func (f *fakeFeedback) Submit(_ context.Context, fb *domain.DoctorFeedback, _ []uuid.UUID) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, fb)
	return nil
}

func (f *fakeFeedback) Accuracy(_ context.Context, _ uuid.UUID) (*feedback.Stats, error) {
	if f.stats == nil {
		return nil, errors.New("no stats")
	}
	return f.stats, nil
}

type fakeHub struct {
	registered []uuid.UUID
}

func (f *fakeHub) Register(jobID uuid.UUID, conn *websocket.Conn) error {
	f.registered = append(f.registered, jobID)
	conn.Close()
	return nil
}

func (f *fakeHub) Unregister(uuid.UUID, *websocket.Conn) {}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

// --- helpers ---

type testDeps struct {
	patients *fakePatients
	reports  *fakeReports
	audit    *fakeAudit
	indexer  *fakeIndexer
	analysis *fakeAnalysis
	feedback *fakeFeedback
	hub      *fakeHub
	postgres *fakePinger
	redis    *fakePinger
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()
	deps := &testDeps{
		patients: newFakePatients(),
		reports:  newFakeReports(),
		audit:    &fakeAudit{},
		indexer:  &fakeIndexer{},
		analysis: newFakeAnalysis(),
		feedback: &fakeFeedback{stats: &feedback.Stats{Total: 1, Correct: 1, AccuracyRate: 1}},
		hub:      &fakeHub{},
		postgres: &fakePinger{},
		redis:    &fakePinger{},
	}

	cfg := &config.Config{AppEnv: "test", APIHost: "127.0.0.1", APIPort: "8000"}
	srv := NewServer(cfg, Deps{
		Patients:    deps.patients,
		Reports:     deps.reports,
		ReportCache: deps.reports,
		Audit:       deps.audit,
		Ingestor:    &fakeIngestor{},
		Indexer:     deps.indexer,
		Analysis:    deps.analysis,
		Feedback:    deps.feedback,
		Narrator:    narrator.New(nil),
		Hub:         deps.hub,
		Postgres:    deps.postgres,
		Redis:       deps.redis,
	})
	return srv, deps
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func seedPatient(deps *testDeps) *domain.PatientRecord {
	patient := &domain.PatientRecord{
		ID:        uuid.New(),
		FirstName: "Asha",
		LastName:  "Verma",
	}
	deps.patients.patients[patient.ID] = patient
	return patient
}

func seedReport(deps *testDeps, patientID uuid.UUID) *domain.ConsolidatedReport {
	report := &domain.ConsolidatedReport{
		ID:               uuid.New(),
		PatientID:        patientID,
		PatientName:      "Asha Verma",
		VisitDate:        time.Now().UTC(),
		PrimaryDiagnosis: "stable angina",
		Severity:         domain.RiskModerate,
		FollowUp:         "Review in 2 weeks",
		ImagingFindings:  "No acute cardiopulmonary abnormality",
	}
	deps.reports.reports[report.ID] = report
	return report
}

// --- observability ---

func TestHandleLiveness(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health/live", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health/ready", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_PostgresDown(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.postgres.err = errors.New("connection refused")

	rec := doJSON(t, srv, http.MethodGet, "/health/ready", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"postgres"`)
}

func TestHandleVersion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/version", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_version")
}

// --- patients ---

func TestCreatePatient(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/patients", map[string]string{
		"first_name":    "Asha",
		"last_name":     "Verma",
		"date_of_birth": "1961-03-14",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var patient domain.PatientRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &patient))
	assert.NotEqual(t, uuid.Nil, patient.ID)
	assert.Equal(t, "Asha", patient.FirstName)

	assert.Contains(t, deps.audit.operations(), "patient_registered")
}

func TestCreatePatient_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing first name", map[string]string{"last_name": "Verma"}},
		{"missing last name", map[string]string{"first_name": "Asha"}},
		{"bad date of birth", map[string]string{"first_name": "Asha", "last_name": "Verma", "date_of_birth": "14/03/1961"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/patients", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetPatient(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)

	rec := doJSON(t, srv, http.MethodGet, "/api/patients/"+patient.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Asha")
}

func TestGetPatient_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/patients/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)
}

// --- ingestion ---

func TestIngest(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)

	rec := doJSON(t, srv, http.MethodPost, "/api/ingest/multi-modal", map[string]any{
		"patient_id": patient.ID,
		"items": []map[string]any{
			{"file_path": "chest_xray.png", "data_type": "imaging"},
			{"file_path": "visit_notes.txt", "data_type": "clinical_notes"},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_items_ingested":2`)
	assert.Contains(t, rec.Body.String(), `"chunks_stored":2`)
	assert.Equal(t, []uuid.UUID{patient.ID}, deps.indexer.indexed)
	assert.Contains(t, deps.audit.operations(), "data_ingested")
}

func TestIngest_UnknownPatient(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/ingest/multi-modal", map[string]any{
		"patient_id": uuid.New(),
		"items":      []map[string]any{{"file_path": "scan.png"}},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIngest_NoItems(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)

	rec := doJSON(t, srv, http.MethodPost, "/api/ingest/multi-modal", map[string]any{
		"patient_id": patient.ID,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- analysis jobs ---

func TestStartAnalysis(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)

	rec := doJSON(t, srv, http.MethodPost, "/api/analyze/"+patient.ID.String(), map[string]any{
		"clinical_context": "chest pain on exertion",
		"vital_signs":      map[string]float64{"heart_rate": 92},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	var job domain.AnalysisJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, domain.JobQueued, job.Status)
	assert.Equal(t, patient.ID, job.PatientID)

	require.Len(t, deps.analysis.started, 1)
	assert.Equal(t, "chest pain on exertion", deps.analysis.started[0].ClinicalContext)
	assert.InDelta(t, 92, deps.analysis.started[0].VitalSigns["heart_rate"], 0.001)
}

func TestStartAnalysis_MissingContext(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)

	rec := doJSON(t, srv, http.MethodPost, "/api/analyze/"+patient.ID.String(), map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartAnalysis_BacklogFull(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)
	deps.analysis.startErr = domain.ErrAnalysisBacklog

	rec := doJSON(t, srv, http.MethodPost, "/api/analyze/"+patient.ID.String(), map[string]any{
		"clinical_context": "chest pain",
	})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestStartAnalysis_UnknownPatient(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.analysis.startErr = domain.ErrPatientNotFound

	rec := doJSON(t, srv, http.MethodPost, "/api/analyze/"+uuid.NewString(), map[string]any{
		"clinical_context": "chest pain",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetJob(t *testing.T) {
	srv, deps := newTestServer(t)
	job := &domain.AnalysisJob{ID: uuid.New(), Status: domain.JobRunning, Stage: domain.StageReasoning}
	deps.analysis.jobs[job.ID] = job

	rec := doJSON(t, srv, http.MethodGet, "/api/analyze/jobs/"+job.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"stage":"reasoning"`)
}

func TestGetJob_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/analyze/jobs/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- reports and narration ---

func TestListReports(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)
	seedReport(deps, patient.ID)
	seedReport(deps, patient.ID)
	seedReport(deps, uuid.New()) // other patient

	rec := doJSON(t, srv, http.MethodGet, "/api/reports/patient/"+patient.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":2`)
}

func TestNarrate_PatientFriendly(t *testing.T) {
	srv, deps := newTestServer(t)
	report := seedReport(deps, uuid.New())

	rec := doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id": report.ID,
		"language":  "en",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "PATIENT REPORT SUMMARY")
	assert.Contains(t, rec.Body.String(), "stable angina")
}

func TestNarrate_Professional(t *testing.T) {
	srv, deps := newTestServer(t)
	report := seedReport(deps, uuid.New())
	deps.reports.summaries[report.ID] = &domain.ClinicalIntelligenceSummary{
		ReportID:     report.ID,
		RiskScore:    0.45,
		EthicalNotes: "Safety checks passed",
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id":      report.ID,
		"narrative_type": "medical_professional",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CLINICAL INTELLIGENCE SUMMARY")
	assert.Contains(t, rec.Body.String(), "0.45")
}

func TestNarrate_ReviewFlaggedReportBlockedForPatients(t *testing.T) {
	srv, deps := newTestServer(t)
	report := seedReport(deps, uuid.New())
	report.NeedsReview = true

	rec := doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id": report.ID,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"unsafe"`)

	// Clinicians still get the professional narrative.
	rec = doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id":      report.ID,
		"narrative_type": "medical_professional",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNarrate_UnsupportedLanguage(t *testing.T) {
	srv, deps := newTestServer(t)
	report := seedReport(deps, uuid.New())

	rec := doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id": report.ID,
		"language":  "tlh",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNarrate_ReportNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/narrate/report", map[string]any{
		"report_id": uuid.New(),
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportReport(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)
	report := seedReport(deps, patient.ID)

	rec := doJSON(t, srv, http.MethodPost, "/api/export/report/"+report.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CLINICAL REPORT")
	assert.Contains(t, deps.audit.operations(), "report_exported")
}

func TestAuditTrail(t *testing.T) {
	srv, deps := newTestServer(t)
	patient := seedPatient(deps)
	deps.audit.entries = append(deps.audit.entries, domain.AuditEntry{
		PatientID: patient.ID,
		Operation: "analysis_completed",
	})

	rec := doJSON(t, srv, http.MethodGet, "/api/audit/trail/"+patient.ID.String(), nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "analysis_completed")
}

// --- feedback ---

func TestSubmitFeedback(t *testing.T) {
	srv, deps := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback/submit", map[string]any{
		"report_id":  uuid.New(),
		"doctor_id":  "dr-201",
		"transcript": "The diagnosis is correct, well done",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"recorded"`)
	assert.Contains(t, rec.Body.String(), `"accuracy_rate":1`)
	require.Len(t, deps.feedback.submitted, 1)
}

func TestSubmitFeedback_Debounced(t *testing.T) {
	srv, deps := newTestServer(t)
	deps.feedback.submitErr = domain.ErrFeedbackDebounced

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback/submit", map[string]any{
		"report_id":     uuid.New(),
		"doctor_id":     "dr-201",
		"feedback_type": "correct",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"conflict"`)
}

func TestSubmitFeedback_Validation(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/feedback/submit", map[string]any{
		"report_id": uuid.New(),
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- websocket ---

func TestAnalysisStream_JobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/ws/analysis/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- rate limiting ---

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(1, 2)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// Independent budget per IP
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestRateLimitMiddleware(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.limiter = newIPRateLimiter(1, 1)

	first := doJSON(t, srv, http.MethodGet, "/api/patients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := doJSON(t, srv, http.MethodGet, "/api/patients/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
