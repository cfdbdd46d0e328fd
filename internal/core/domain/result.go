package domain

import "time"

type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// DysfluencyEvent is a single detected speech disruption in canonical form.
// Raw service payloads encode events in several shapes; they are resolved
// into this record once, at the normalization boundary.
type DysfluencyEvent struct {
	Type       string  `json:"type"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Text       string  `json:"text"`
}

// AnalysisResult is the persisted outcome of one successful analysis.
// Exactly one exists per completed recording and it is immutable; deleting
// the recording cascades here.
type AnalysisResult struct {
	RecordingID             string            `json:"recording_id"`
	ActualTranscript        string            `json:"actual_transcript"`
	TargetTranscript        string            `json:"target_transcript"`
	MismatchedChars         []string          `json:"mismatched_chars"`
	MismatchPercentage      float64           `json:"mismatch_percentage"`
	CTCLossScore            float64           `json:"ctc_loss_score"`
	Events                  []DysfluencyEvent `json:"stutter_timestamps"`
	TotalStutterDuration    float64           `json:"total_stutter_duration"`
	StutterFrequency        float64           `json:"stutter_frequency"`
	Severity                Severity          `json:"severity"`
	ConfidenceScore         float64           `json:"confidence_score"`
	AnalysisDurationSeconds float64           `json:"analysis_duration_seconds"`
	ModelVersion            string            `json:"model_version"`
	Language                string            `json:"language_detected"`
	CreatedAt               time.Time         `json:"created_at"`
}

// ResultSummary is the outward-facing slice of a result exposed by the
// status query interface.
type ResultSummary struct {
	Severity           Severity `json:"severity"`
	MismatchPercentage float64  `json:"mismatch_percentage"`
	EventCount         int      `json:"event_count"`
	ConfidenceScore    float64  `json:"confidence_score"`
}

// Summary projects the fields a polling client needs.
func (r *AnalysisResult) Summary() ResultSummary {
	return ResultSummary{
		Severity:           r.Severity,
		MismatchPercentage: r.MismatchPercentage,
		EventCount:         len(r.Events),
		ConfidenceScore:    r.ConfidenceScore,
	}
}

// ServiceHealth reports reachability of the external analysis service. It is
// consumed by monitoring, never by the pipeline itself.
type ServiceHealth struct {
	Healthy      bool    `json:"healthy"`
	StatusCode   int     `json:"status_code,omitempty"`
	Message      string  `json:"message"`
	ResponseTime float64 `json:"response_time,omitempty"`
}
