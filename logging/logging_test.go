package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/pointflow/logging"
)

func TestNew_JSONWithLogLevelKey(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "info")
	require.NoError(t, err)

	log.WithField("wallet", "abc").Info("Session.Connect")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["loglevel"])
	assert.Equal(t, "Session.Connect", line["msg"])
	assert.Equal(t, "abc", line["wallet"])
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := logging.New(&bytes.Buffer{}, "loud")
	assert.Error(t, err)
}

func TestLogData_FieldsAndTimings(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(&buf, "debug")
	require.NoError(t, err)

	ld := logging.NewLogData(log)
	ld.AddData("wallet", "abc")
	ld.AddTiming("store")()
	ld.Log().Info("done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "abc", line["wallet"])
	assert.Contains(t, line, "store")
}

func TestFromContext_Fallback(t *testing.T) {
	assert.NotNil(t, logging.FromContext(context.Background()))
}

func TestMiddleware_OneLinePerRequest(t *testing.T) {
	// GIVEN: A router with the logging middleware
	// WHEN: A handler adds data and the request completes
	// THEN: One line named after the route pattern carries status and data

	var buf bytes.Buffer
	log, err := logging.New(&buf, "info")
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(logging.Middleware(log))
	r.Get("/api/sessions/{wallet}/balance", func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).AddData("wallet", chi.URLParam(r, "wallet"))
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/abc/balance", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Handler.GET /api/sessions/{wallet}/balance.Complete", line["msg"])
	assert.Equal(t, "abc", line["wallet"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
}
