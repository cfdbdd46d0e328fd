package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestCoerceFloatDefaultsOnMalformedInput(t *testing.T) {
	inputs := []any{nil, "not-a-number", map[string]any{"v": 1}, []any{1.0}, true, math.NaN(), math.Inf(1)}
	for _, in := range inputs {
		if got := coerceFloat(in); got != 0.0 {
			t.Fatalf("coerceFloat(%v) = %v, want 0.0", in, got)
		}
	}
}

func TestCoerceFloatAcceptsNumericForms(t *testing.T) {
	if got := coerceFloat(json.Number("12.5")); got != 12.5 {
		t.Fatalf("json.Number: got %v", got)
	}
	if got := coerceFloat(" 3.25 "); got != 3.25 {
		t.Fatalf("numeric string: got %v", got)
	}
	if got := coerceFloat(7); got != 7.0 {
		t.Fatalf("int: got %v", got)
	}
}

func TestNormalizeEventsAcceptsAllEncodings(t *testing.T) {
	raw := []any{
		map[string]any{"start": 0.5, "end": 1.0, "type": "repetition", "confidence": 0.9, "text": "b-b-but"},
		map[string]any{"start_time": 2.0, "end_time": 2.4},
		[]any{3.0, 3.5},
		[]any{4.0, 4.8, "prolongation"},
	}

	events := normalizeEvents(raw)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	first := events[0]
	if first.Type != "repetition" || first.Confidence != 0.9 || first.Text != "b-b-but" {
		t.Fatalf("unexpected mapped event: %+v", first)
	}
	if first.Duration != 0.5 {
		t.Fatalf("expected derived duration 0.5, got %v", first.Duration)
	}

	second := events[1]
	if second.Type != "dysfluency" || second.Confidence != 0.5 {
		t.Fatalf("expected defaults on bare mapped event: %+v", second)
	}

	third := events[2]
	if third.Type != "dysfluency" || third.Start != 3.0 || third.End != 3.5 {
		t.Fatalf("unexpected pair event: %+v", third)
	}

	fourth := events[3]
	if fourth.Type != "prolongation" {
		t.Fatalf("expected triple type, got %q", fourth.Type)
	}
}

func TestNormalizeEventsSkipsMalformedShapes(t *testing.T) {
	raw := []any{
		[]any{0.5, 1.0},
		"garbage",
		[]any{2.0},
		42.0,
		map[string]any{"start": 2.0, "end": 2.4},
	}

	events := normalizeEvents(raw)
	if len(events) != 2 {
		t.Fatalf("expected malformed entries dropped, got %d events", len(events))
	}
	if events[0].Start != 0.5 || events[1].Start != 2.0 {
		t.Fatalf("surviving events out of order: %+v", events)
	}
}

func TestNormalizeEventsHonoursExplicitDuration(t *testing.T) {
	events := normalizeEvents([]any{
		map[string]any{"start": 1.0, "end": 2.0, "duration": 0.75},
	})
	if len(events) != 1 || events[0].Duration != 0.75 {
		t.Fatalf("expected explicit duration kept, got %+v", events)
	}
}

func TestNormalizeAnalysisComputesTotalDurationWhenAbsent(t *testing.T) {
	raw := RawAnalysis{
		"stutter_timestamps": []any{
			[]any{0.5, 1.0},
			[]any{2.0, 2.4},
		},
	}

	result := NormalizeAnalysis(raw, "", "hin", time.Second)
	want := 0.9
	if math.Abs(result.TotalStutterDuration-want) > 1e-9 {
		t.Fatalf("TotalStutterDuration = %v, want %v", result.TotalStutterDuration, want)
	}
}

func TestNormalizeAnalysisKeepsUpstreamTotalDuration(t *testing.T) {
	raw := RawAnalysis{
		"total_stutter_duration": 5.5,
		"stutter_timestamps":     []any{[]any{0.0, 1.0}},
	}
	result := NormalizeAnalysis(raw, "", "hin", time.Second)
	if result.TotalStutterDuration != 5.5 {
		t.Fatalf("expected upstream total kept, got %v", result.TotalStutterDuration)
	}
}

func TestNormalizeAnalysisTranscriptPrecedence(t *testing.T) {
	raw := RawAnalysis{
		"actual_transcript": "  heard text  ",
		"target_transcript": "",
	}
	result := NormalizeAnalysis(raw, "  expected text  ", "hin", 0)
	if result.ActualTranscript != "heard text" {
		t.Fatalf("ActualTranscript = %q", result.ActualTranscript)
	}
	if result.TargetTranscript != "expected text" {
		t.Fatalf("TargetTranscript = %q, want caller-supplied value", result.TargetTranscript)
	}

	raw["target_transcript"] = "service value"
	result = NormalizeAnalysis(raw, "caller value", "hin", 0)
	if result.TargetTranscript != "service value" {
		t.Fatalf("expected upstream transcript to win, got %q", result.TargetTranscript)
	}
}

func TestNormalizeAnalysisDefaults(t *testing.T) {
	result := NormalizeAnalysis(RawAnalysis{}, "", "eng", 1500*time.Millisecond)
	if result.Severity != SeverityNone {
		t.Fatalf("Severity = %q, want none", result.Severity)
	}
	if result.ModelVersion != defaultModelVersion {
		t.Fatalf("ModelVersion = %q", result.ModelVersion)
	}
	if result.Language != "eng" {
		t.Fatalf("Language = %q", result.Language)
	}
	if result.AnalysisDurationSeconds != 1.5 {
		t.Fatalf("AnalysisDurationSeconds = %v", result.AnalysisDurationSeconds)
	}
	if result.Events == nil || result.MismatchedChars == nil {
		t.Fatalf("expected non-nil slices for JSON-safe persistence")
	}
}

func TestNormalizeAnalysisResultIsJSONSafe(t *testing.T) {
	raw := RawAnalysis{
		"severity":            "Moderate",
		"mismatch_percentage": json.Number("12.5"),
		"mismatched_chars":    []any{"ab", "cd"},
		"stutter_timestamps":  []any{map[string]any{"start": json.Number("0.5"), "end": json.Number("1.0")}},
	}
	result := NormalizeAnalysis(raw, "ref", "tam", time.Second)
	if result.Severity != SeverityModerate {
		t.Fatalf("Severity = %q", result.Severity)
	}
	if result.MismatchPercentage != 12.5 {
		t.Fatalf("MismatchPercentage = %v", result.MismatchPercentage)
	}
	if _, err := json.Marshal(result); err != nil {
		t.Fatalf("result must marshal cleanly: %v", err)
	}
}
