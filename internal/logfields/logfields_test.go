package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"JobID", KeyJobID, "123", JobID("123")},
		{"JobStatus", KeyJobStatus, "queued", JobStatus("queued")},
		{"Recipe", KeyRecipe, "daily", Recipe("daily")},
		{"Kind", KeyKind, "series", Kind("series")},
		{"Stage", KeyStage, "drifted", Stage("drifted")},
		{"Artifact", KeyArtifact, "abc", Artifact("abc")},
		{"ScheduleName", KeySchedule, "nightly", ScheduleName("nightly")},
		{"Subject", KeySubject, "synthdata.runs", Subject("synthdata.runs")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Format", KeyFormat, "csv", Format("csv")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"RequestID", KeyRequestID, "rid", RequestID("rid")},
		{"URL", KeyURL, "http://example", URL("http://example")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Points(144); v.Key != KeyPoints || v.Value.Int64() != 144 {
		t.Fatalf("Points mismatch: %v", v)
	}
	if v := Anomalies(3); v.Key != KeyAnomalies {
		t.Fatalf("Anomalies key mismatch: %s", v.Key)
	}
	if v := Seed(42); v.Key != KeySeed || v.Value.Uint64() != 42 {
		t.Fatalf("Seed mismatch: %v", v)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
	if v := Status(200); v.Key != KeyStatus {
		t.Fatalf("Status key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
