package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/synthdata/internal/logfields"
)

// RequestLogger logs one line per request with the canonical field names.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			slog.Log(r.Context(), level, "HTTP request",
				logfields.Method(r.Method),
				logfields.Path(r.URL.Path),
				logfields.Status(status),
				logfields.RequestID(middleware.GetReqID(r.Context())),
				logfields.RemoteAddr(r.RemoteAddr),
				logfields.DurationMS(float64(time.Since(start).Microseconds())/1000),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
