package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkuzmin/predictq/internal/api"
	"github.com/avkuzmin/predictq/internal/api/shared"
	"github.com/avkuzmin/predictq/internal/domain"
	"github.com/avkuzmin/predictq/internal/mocks"
	"github.com/avkuzmin/predictq/internal/platform/logger"
	"github.com/avkuzmin/predictq/internal/service"
)

type predictionFixture struct {
	handler   *api.PredictionHandler
	ledger    *mocks.FakeLedgerStore
	tasks     *mocks.FakeTaskStore
	publisher *mocks.FakePublisher
	mock      sqlmock.Sqlmock
}

func newPredictionFixture(t *testing.T) *predictionFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ledger := mocks.NewFakeLedgerStore()
	tasks := mocks.NewFakeTaskStore()
	publisher := mocks.NewFakePublisher()

	dispatch, err := service.NewDispatchService(
		db, ledger, tasks, publisher, 10, []string{"gemini-2.0-flash"}, nil)
	require.NoError(t, err)

	results, err := service.NewResultService(tasks, nil)
	require.NoError(t, err)

	return &predictionFixture{
		handler:   api.NewPredictionHandler(dispatch, results, logger.FromContext(context.Background())),
		ledger:    ledger,
		tasks:     tasks,
		publisher: publisher,
		mock:      mock,
	}
}

// authedRequest builds a request carrying the owner identity the way the
// auth middleware would have set it.
func authedRequest(method, target string, body []byte, ownerID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), shared.OwnerIDContextKey, ownerID)
	return req.WithContext(ctx)
}

func TestSubmitPrediction(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	validBody := []byte(`{"input":"Once upon a time","model":"gemini-2.0-flash"}`)

	t.Run("accepted with 202 and a pending task", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		f.ledger.SetBalance(ownerID, 50)
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", validBody, ownerID))

		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp api.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(domain.TaskStatusPending), resp.Status)
		assert.Equal(t, int64(10), resp.Cost)
		assert.Nil(t, resp.Result)

		require.Len(t, f.publisher.Published(), 1)
		assert.Equal(t, resp.ID, f.publisher.Published()[0].TaskID.String())
	})

	t.Run("insufficient funds answers 402", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		f.ledger.SetBalance(ownerID, 5)
		f.mock.ExpectBegin()
		f.mock.ExpectRollback()

		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", validBody, ownerID))

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Empty(t, f.publisher.Published())
	})

	t.Run("unknown model answers 404", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		f.ledger.SetBalance(ownerID, 50)

		body := []byte(`{"input":"Once upon a time","model":"gpt-99"}`)
		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", body, ownerID))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("dispatch failure answers 500 after compensation", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		f.ledger.SetBalance(ownerID, 50)
		f.publisher.PublishErr = errors.New("broker unavailable")
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()
		f.mock.ExpectBegin()
		f.mock.ExpectCommit()

		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", validBody, ownerID))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		balance, err := f.ledger.GetBalance(context.Background(), ownerID)
		require.NoError(t, err)
		assert.Equal(t, int64(50), balance.Amount)
		assert.Equal(t, 0, f.tasks.Len())
	})

	t.Run("missing fields answer 400", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)

		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", []byte(`{"model":"gemini-2.0-flash"}`), ownerID))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, authedRequest(http.MethodPost, "/api/predictions", []byte(`not json`), ownerID))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing identity answers 401", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/predictions", bytes.NewReader(validBody))
		rec := httptest.NewRecorder()
		f.handler.SubmitPrediction(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetPrediction(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	otherOwner := uuid.New()

	seed := func(t *testing.T, f *predictionFixture) *domain.Task {
		t.Helper()
		task, err := domain.NewTask(ownerID, "Once upon a time", "gemini-2.0-flash", 10)
		require.NoError(t, err)
		require.NoError(t, f.tasks.CreateTask(context.Background(), task))
		return task
	}

	// getVia routes the request through chi so the URL parameter is bound.
	getVia := func(f *predictionFixture, taskID string, owner uuid.UUID) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Get("/api/predictions/{taskID}", f.handler.GetPrediction)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/predictions/"+taskID, nil, owner))
		return rec
	}

	t.Run("owner reads own pending task", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		task := seed(t, f)

		rec := getVia(f, task.ID.String(), ownerID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, task.ID.String(), resp.ID)
		assert.Equal(t, string(domain.TaskStatusPending), resp.Status)
	})

	t.Run("completed task carries the result and its outcome kind", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		task := seed(t, f)

		applied, err := f.tasks.CompleteTask(context.Background(), task.ID,
			"prediction failed: content blocked", domain.ResultStatusError)
		require.NoError(t, err)
		require.True(t, applied)

		rec := getVia(f, task.ID.String(), ownerID)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp api.TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.NotNil(t, resp.Result)
		assert.Equal(t, "prediction failed: content blocked", *resp.Result)
		assert.Equal(t, string(domain.ResultStatusError), resp.ResultStatus)
		assert.Equal(t, string(domain.TaskStatusCompleted), resp.Status)
	})

	t.Run("foreign and missing tasks are identical 404s", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)
		task := seed(t, f)

		foreign := getVia(f, task.ID.String(), otherOwner)
		missing := getVia(f, uuid.New().String(), otherOwner)

		assert.Equal(t, http.StatusNotFound, foreign.Code)
		assert.Equal(t, http.StatusNotFound, missing.Code)
		assert.JSONEq(t, missing.Body.String(), foreign.Body.String())
	})

	t.Run("malformed task ID answers 404", func(t *testing.T) {
		t.Parallel()
		f := newPredictionFixture(t)

		rec := getVia(f, "not-a-uuid", ownerID)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListPredictions(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	f := newPredictionFixture(t)

	for i := 0; i < 3; i++ {
		task, err := domain.NewTask(ownerID, "input", "gemini-2.0-flash", 10)
		require.NoError(t, err)
		require.NoError(t, f.tasks.CreateTask(context.Background(), task))
	}
	other, err := domain.NewTask(uuid.New(), "input", "gemini-2.0-flash", 10)
	require.NoError(t, err)
	require.NoError(t, f.tasks.CreateTask(context.Background(), other))

	rec := httptest.NewRecorder()
	f.handler.ListPredictions(rec, authedRequest(http.MethodGet, "/api/history/predictions", nil, ownerID))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp []api.TaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 3)
}
