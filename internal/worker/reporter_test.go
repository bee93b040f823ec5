package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPReporterReport(t *testing.T) {
	t.Parallel()

	report := &Report{
		TaskID:   uuid.New(),
		Result:   "a dark and stormy night",
		WorkerID: "worker-1",
		Status:   ReportCompleted,
	}

	t.Run("delivers the report with the worker key", func(t *testing.T) {
		t.Parallel()

		var received Report
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "super-secret-worker-key", r.Header.Get("X-Worker-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"applied":true}`))
		}))
		defer server.Close()

		reporter, err := NewHTTPReporter(server.URL, "super-secret-worker-key", time.Second, nil)
		require.NoError(t, err)

		applied, err := reporter.Report(context.Background(), report)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, report.TaskID, received.TaskID)
		assert.Equal(t, report.Result, received.Result)
		assert.Equal(t, ReportCompleted, received.Status)
	})

	t.Run("surfaces applied=false without error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"applied":false}`))
		}))
		defer server.Close()

		reporter, err := NewHTTPReporter(server.URL, "key", time.Second, nil)
		require.NoError(t, err)

		applied, err := reporter.Report(context.Background(), report)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("non-200 is a delivery failure", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		reporter, err := NewHTTPReporter(server.URL, "wrong-key", time.Second, nil)
		require.NoError(t, err)

		applied, err := reporter.Report(context.Background(), report)
		assert.ErrorIs(t, err, ErrReportRejected)
		assert.False(t, applied)
	})

	t.Run("unreachable server is a delivery failure", func(t *testing.T) {
		t.Parallel()

		reporter, err := NewHTTPReporter("http://127.0.0.1:1", "key", 100*time.Millisecond, nil)
		require.NoError(t, err)

		applied, err := reporter.Report(context.Background(), report)
		assert.Error(t, err)
		assert.False(t, applied)
	})
}

func TestNewHTTPReporterValidation(t *testing.T) {
	t.Parallel()

	_, err := NewHTTPReporter("", "key", time.Second, nil)
	assert.Error(t, err)

	_, err = NewHTTPReporter("http://localhost:8080", "", time.Second, nil)
	assert.Error(t, err)
}
