package logging

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Middleware writes one log line per request, named after the matched
// route: Handler.<METHOD /pattern>.Complete, or .Error for 5xx responses.
func Middleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logData := NewLogData(log)
			logData.AddData("request_id", middleware.GetReqID(r.Context()))
			endTimer := logData.AddTiming("duration")

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(WithLogData(r.Context(), logData)))
			endTimer()

			name := r.Method + " " + RoutePattern(r)
			logData.AddData("status", ww.Status())
			if ww.Status() >= http.StatusInternalServerError {
				logData.Log().Errorf("Handler.%v.Error", name)
				return
			}
			logData.Log().Infof("Handler.%v.Complete", name)
		})
	}
}

// RoutePattern returns the chi route pattern that matched r, or the raw
// path when no route matched.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
