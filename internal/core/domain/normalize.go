package domain

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawAnalysis is the analysis service response as decoded JSON. Field shapes
// are unconstrained upstream; NormalizeAnalysis is the only place allowed to
// interpret them.
type RawAnalysis map[string]any

const defaultModelVersion = "external-api-v1"

// NormalizeAnalysis converts a raw service response into a canonical,
// storage-safe AnalysisResult. Malformed numeric fields default to zero and
// unrecognized event shapes are dropped; normalization itself never fails.
func NormalizeAnalysis(raw RawAnalysis, properTranscript, langCode string, elapsed time.Duration) AnalysisResult {
	events := normalizeEvents(raw["stutter_timestamps"])

	totalDuration, ok := coerceFloatOK(raw["total_stutter_duration"])
	if !ok {
		for _, evt := range events {
			totalDuration += evt.Duration
		}
	}

	actual := strings.TrimSpace(coerceString(raw["actual_transcript"]))
	target := strings.TrimSpace(coerceString(raw["target_transcript"]))
	if target == "" {
		target = strings.TrimSpace(properTranscript)
	}

	severity := Severity(strings.ToLower(strings.TrimSpace(coerceString(raw["severity"]))))
	switch severity {
	case SeverityNone, SeverityMild, SeverityModerate, SeveritySevere:
	default:
		severity = SeverityNone
	}

	modelVersion := strings.TrimSpace(coerceString(raw["model_version"]))
	if modelVersion == "" {
		modelVersion = defaultModelVersion
	}

	return AnalysisResult{
		ActualTranscript:        actual,
		TargetTranscript:        target,
		MismatchedChars:         coerceStringSlice(raw["mismatched_chars"]),
		MismatchPercentage:      coerceFloat(raw["mismatch_percentage"]),
		CTCLossScore:            coerceFloat(raw["ctc_loss_score"]),
		Events:                  events,
		TotalStutterDuration:    totalDuration,
		StutterFrequency:        coerceFloat(raw["stutter_frequency"]),
		Severity:                severity,
		ConfidenceScore:         coerceFloat(raw["confidence_score"]),
		AnalysisDurationSeconds: math.Round(elapsed.Seconds()*100) / 100,
		ModelVersion:            modelVersion,
		Language:                langCode,
	}
}

// normalizeEvents accepts the two supported event encodings: a mapping with
// start/end bounds, or an ordered pair/triple (start, end[, type]). Anything
// else is skipped.
func normalizeEvents(raw any) []DysfluencyEvent {
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return []DysfluencyEvent{}
	}

	events := make([]DysfluencyEvent, 0, len(list))
	for i, item := range list {
		switch evt := item.(type) {
		case map[string]any:
			events = append(events, normalizeMappedEvent(evt))
		case []any:
			pair, ok := normalizePairEvent(evt)
			if !ok {
				slog.Warn("skipping malformed stutter event", "index", i)
				continue
			}
			events = append(events, pair)
		default:
			slog.Warn("skipping malformed stutter event", "index", i)
		}
	}
	return events
}

func normalizeMappedEvent(evt map[string]any) DysfluencyEvent {
	start := coerceFloat(firstPresent(evt, "start", "start_time"))
	end := coerceFloat(firstPresent(evt, "end", "end_time"))

	duration, ok := coerceFloatOK(evt["duration"])
	if !ok {
		duration = end - start
	}

	evtType := strings.TrimSpace(coerceString(firstPresent(evt, "type", "event_type")))
	if evtType == "" {
		evtType = "dysfluency"
	}

	confidence, ok := coerceFloatOK(firstPresent(evt, "confidence", "probability"))
	if !ok {
		confidence = 0.5
	}

	return DysfluencyEvent{
		Type:       evtType,
		Start:      start,
		End:        end,
		Duration:   duration,
		Confidence: confidence,
		Text:       coerceString(evt["text"]),
	}
}

func normalizePairEvent(evt []any) (DysfluencyEvent, bool) {
	if len(evt) < 2 {
		return DysfluencyEvent{}, false
	}
	start := coerceFloat(evt[0])
	end := coerceFloat(evt[1])
	evtType := "dysfluency"
	if len(evt) > 2 {
		if s := strings.TrimSpace(coerceString(evt[2])); s != "" {
			evtType = s
		}
	}
	return DysfluencyEvent{
		Type:       evtType,
		Start:      start,
		End:        end,
		Duration:   end - start,
		Confidence: 0.5,
	}, true
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func coerceFloat(v any) float64 {
	f, _ := coerceFloatOK(v)
	return f
}

// coerceFloatOK converts any JSON-decoded value to a finite float64. The
// second return is false when the value is absent or not numeric, so callers
// can distinguish "missing" from a genuine zero.
func coerceFloatOK(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		return 0, false
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

func coerceStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
