package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyJobID      = "job_id"
	KeyJobStatus  = "job_status"
	KeyRecipe     = "recipe"
	KeyKind       = "kind"
	KeyStage      = "stage"
	KeySeed       = "seed"
	KeyDurationMS = "duration_ms"
	KeyPoints     = "points"
	KeyAnomalies  = "anomalies"
	KeyArtifact   = "artifact"
	KeyScheduleID = "schedule_id"
	KeySchedule   = "schedule_name"
	KeySubject    = "subject"
	KeyWorker     = "worker"
	KeyPath       = "path"
	KeyFormat     = "format"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRequestID  = "request_id"
	KeyRemoteAddr = "remote_addr"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobStatus(s string) slog.Attr    { return slog.String(KeyJobStatus, s) }
func Recipe(name string) slog.Attr    { return slog.String(KeyRecipe, name) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Seed(s uint64) slog.Attr         { return slog.Uint64(KeySeed, s) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Points(n int) slog.Attr          { return slog.Int(KeyPoints, n) }
func Anomalies(n int) slog.Attr       { return slog.Int(KeyAnomalies, n) }
func Artifact(hash string) slog.Attr  { return slog.String(KeyArtifact, hash) }
func ScheduleID(id string) slog.Attr  { return slog.String(KeyScheduleID, id) }
func ScheduleName(n string) slog.Attr { return slog.String(KeySchedule, n) }
func Subject(s string) slog.Attr      { return slog.String(KeySubject, s) }
func Worker(w string) slog.Attr       { return slog.String(KeyWorker, w) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Format(f string) slog.Attr       { return slog.String(KeyFormat, f) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RequestID(id string) slog.Attr   { return slog.String(KeyRequestID, id) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
