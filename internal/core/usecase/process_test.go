package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/anfastech/slaq-analysis/internal/core/domain"
	"github.com/anfastech/slaq-analysis/internal/core/ports"
)

type statusCall struct {
	status domain.RecordingStatus
	errMsg string
}

type recordingRepoFake struct {
	rec         *domain.Recording
	getErr      error
	statusCalls []statusCall
	durations   []float64
	processedAt []time.Time
	deleted     []string
}

func (f *recordingRepoFake) Create(context.Context, *domain.Recording) error { return nil }

func (f *recordingRepoFake) GetByID(context.Context, string) (*domain.Recording, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copyRec := *f.rec
	return &copyRec, nil
}

func (f *recordingRepoFake) UpdateStatus(_ context.Context, _ string, status domain.RecordingStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	f.rec.Status = status
	f.rec.ErrorMessage = errMessage
	return nil
}

func (f *recordingRepoFake) SetDuration(_ context.Context, _ string, seconds float64) error {
	f.durations = append(f.durations, seconds)
	return nil
}

func (f *recordingRepoFake) MarkProcessed(_ context.Context, _ string, at time.Time) error {
	f.processedAt = append(f.processedAt, at)
	return nil
}

func (f *recordingRepoFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type resultRepoFake struct {
	saved   []*domain.AnalysisResult
	saveErr error
	result  *domain.AnalysisResult
	getErr  error
}

func (f *resultRepoFake) Save(_ context.Context, result *domain.AnalysisResult) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, result)
	return nil
}

func (f *resultRepoFake) GetByRecordingID(context.Context, string) (*domain.AnalysisResult, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.result, nil
}

type storageFake struct {
	saved   map[string][]byte
	removed []string
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saved == nil {
		f.saved = make(map[string][]byte)
	}
	b, _ := io.ReadAll(data)
	f.saved[key] = b
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) { return nil, nil }

func (f *storageFake) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	return nil
}

func (f *storageFake) Path(key string) string { return "/data/" + key }

type normalizerFake struct {
	path     string
	cleanups int
}

func (f *normalizerFake) Normalize(_ context.Context, sourcePath string) (string, func()) {
	path := f.path
	if path == "" {
		path = sourcePath
	}
	return path, func() { f.cleanups++ }
}

type proberFake struct {
	seconds float64
	err     error
}

func (f *proberFake) Duration(context.Context, string) (float64, error) {
	return f.seconds, f.err
}

type analyzerFake struct {
	raw      domain.RawAnalysis
	err      error
	requests []ports.AnalyzeRequest
}

func (f *analyzerFake) Analyze(_ context.Context, req ports.AnalyzeRequest) (domain.RawAnalysis, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *analyzerFake) ResolveLanguage(string) string { return "hin" }

func (f *analyzerFake) CheckHealth(context.Context) domain.ServiceHealth {
	return domain.ServiceHealth{Healthy: true}
}

type queueFake struct {
	published  []domain.AnalysisJob
	publishErr error
}

func (f *queueFake) PublishAnalysisJob(_ context.Context, job domain.AnalysisJob) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, job)
	return nil
}

func (f *queueFake) SubscribeAnalysisJobs(context.Context, func(context.Context, domain.AnalysisJob) error) error {
	return nil
}

func newProcessUC(
	repo *recordingRepoFake,
	results *resultRepoFake,
	analyzer *analyzerFake,
	queue *queueFake,
	norm *normalizerFake,
) *ProcessRecordingUseCase {
	return NewProcessRecordingUseCase(
		repo,
		results,
		&storageFake{},
		norm,
		&proberFake{seconds: 3.0},
		analyzer,
		queue,
		ProcessConfig{MaxJobAttempts: 3, RetryBackoffBase: time.Millisecond},
	)
}

func pendingRecording() *domain.Recording {
	return &domain.Recording{
		ID:          "rec-1",
		StoragePath: "rec-1_audio.wav",
		Language:    "hindi",
		Status:      domain.StatusPending,
	}
}

func TestProcessSuccess(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	results := &resultRepoFake{}
	analyzer := &analyzerFake{raw: domain.RawAnalysis{
		"actual_transcript":   "heard",
		"severity":            "mild",
		"mismatch_percentage": 12.5,
		"stutter_timestamps":  []any{[]any{0.5, 1.0}, []any{2.0, 2.4}},
	}}
	queue := &queueFake{}
	norm := &normalizerFake{path: "/tmp/normalized.wav"}
	uc := newProcessUC(repo, results, analyzer, queue, norm)

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 1}
	if err := uc.Process(context.Background(), job); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusCompleted {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if len(results.saved) != 1 {
		t.Fatalf("expected 1 saved result, got %d", len(results.saved))
	}
	saved := results.saved[0]
	if saved.RecordingID != "rec-1" || saved.Severity != domain.SeverityMild {
		t.Fatalf("unexpected result: %+v", saved)
	}
	if len(saved.Events) != 2 {
		t.Fatalf("expected 2 canonical events, got %d", len(saved.Events))
	}
	if len(repo.durations) != 1 || repo.durations[0] != 3.0 {
		t.Fatalf("expected duration persisted, got %v", repo.durations)
	}
	if len(repo.processedAt) != 1 {
		t.Fatalf("expected processed timestamp")
	}
	if norm.cleanups != 1 {
		t.Fatalf("expected temp audio cleanup exactly once, got %d", norm.cleanups)
	}
	if len(analyzer.requests) != 1 || analyzer.requests[0].AudioPath != "/tmp/normalized.wav" {
		t.Fatalf("analyzer should receive the normalized path: %+v", analyzer.requests)
	}
	if len(queue.published) != 0 {
		t.Fatalf("success must not enqueue retries")
	}
}

func TestProcessMissingRecordingIsSilent(t *testing.T) {
	repo := &recordingRepoFake{getErr: domain.ErrRecordingNotFound}
	uc := newProcessUC(repo, &resultRepoFake{}, &analyzerFake{}, &queueFake{}, &normalizerFake{})

	if err := uc.Process(context.Background(), domain.AnalysisJob{RecordingID: "gone", Attempt: 1}); err != nil {
		t.Fatalf("missing recording must not error, got %v", err)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("no status mutation expected: %+v", repo.statusCalls)
	}
}

func TestProcessDropsInFlightRecording(t *testing.T) {
	rec := pendingRecording()
	rec.Status = domain.StatusProcessing
	repo := &recordingRepoFake{rec: rec}
	analyzer := &analyzerFake{}
	uc := newProcessUC(repo, &resultRepoFake{}, analyzer, &queueFake{}, &normalizerFake{})

	if err := uc.Process(context.Background(), domain.AnalysisJob{RecordingID: "rec-1", Attempt: 1}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(analyzer.requests) != 0 {
		t.Fatalf("in-flight recording must not be re-analyzed")
	}
}

func TestProcessFailureSchedulesRetry(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	queue := &queueFake{}
	norm := &normalizerFake{}
	analyzer := &analyzerFake{err: domain.WrapError(domain.ErrTemporary, "analyze audio", errors.New("connect refused"))}
	uc := newProcessUC(repo, &resultRepoFake{}, analyzer, queue, norm)

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 1}
	err := uc.Process(context.Background(), job)
	if err == nil {
		t.Fatalf("expected failure to propagate")
	}

	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected processing then failed, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[1].errMsg == "" {
		t.Fatalf("failed status must carry the cause")
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected one retry enqueued, got %d", len(queue.published))
	}
	if queue.published[0].Attempt != 2 {
		t.Fatalf("retry attempt = %d, want 2", queue.published[0].Attempt)
	}
	if norm.cleanups != 1 {
		t.Fatalf("cleanup must run on failure paths too")
	}
}

func TestProcessExhaustedAttemptsAreTerminal(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	queue := &queueFake{}
	analyzer := &analyzerFake{err: domain.WrapError(domain.ErrTemporary, "analyze audio", errors.New("timeout"))}
	uc := newProcessUC(repo, &resultRepoFake{}, analyzer, queue, &normalizerFake{})

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 3}
	if err := uc.Process(context.Background(), job); err == nil {
		t.Fatalf("expected failure to propagate")
	}

	if len(queue.published) != 0 {
		t.Fatalf("exhausted job must not re-enqueue")
	}
	if repo.rec.Status != domain.StatusFailed || repo.rec.ErrorMessage == "" {
		t.Fatalf("expected terminal failed with message, got %+v", repo.rec)
	}
}

func TestProcessPermanentLocalFailureSkipsRetry(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	queue := &queueFake{}
	analyzer := &analyzerFake{err: domain.WrapError(domain.ErrInvalidInput, "read audio file", errors.New("no such file"))}
	uc := newProcessUC(repo, &resultRepoFake{}, analyzer, queue, &normalizerFake{})

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 1}
	if err := uc.Process(context.Background(), job); err == nil {
		t.Fatalf("expected failure to propagate")
	}
	if len(queue.published) != 0 {
		t.Fatalf("a missing file cannot succeed on retry; budget must not be spent")
	}
	if repo.rec.Status != domain.StatusFailed {
		t.Fatalf("expected terminal failed, got %s", repo.rec.Status)
	}
}

func TestProcessRetriedJobCompletesFromFailedState(t *testing.T) {
	rec := pendingRecording()
	rec.Status = domain.StatusFailed
	rec.ErrorMessage = "previous timeout"
	repo := &recordingRepoFake{rec: rec}
	results := &resultRepoFake{}
	analyzer := &analyzerFake{raw: domain.RawAnalysis{"severity": "none"}}
	uc := newProcessUC(repo, results, analyzer, &queueFake{}, &normalizerFake{})

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 2}
	if err := uc.Process(context.Background(), job); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusCompleted {
		t.Fatalf("expected failed → processing → completed, got %+v", repo.statusCalls)
	}
	if len(results.saved) != 1 {
		t.Fatalf("expected result saved on retry success")
	}
}

func TestProcessResultSaveFailureFollowsRetryPolicy(t *testing.T) {
	repo := &recordingRepoFake{rec: pendingRecording()}
	results := &resultRepoFake{saveErr: errors.New("insert failed")}
	queue := &queueFake{}
	analyzer := &analyzerFake{raw: domain.RawAnalysis{"severity": "none"}}
	uc := newProcessUC(repo, results, analyzer, queue, &normalizerFake{})

	job := domain.AnalysisJob{RecordingID: "rec-1", Language: "hindi", Attempt: 1}
	if err := uc.Process(context.Background(), job); err == nil {
		t.Fatalf("expected failure to propagate")
	}
	if repo.rec.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.rec.Status)
	}
	if len(queue.published) != 1 {
		t.Fatalf("persistence failures are retryable, expected enqueue")
	}
}
