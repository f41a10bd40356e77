package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ruixin88/backtest-console/src/console-api/models"
)

func TestSetResponseEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, setResponse(map[string]string{"hello": "world"}, rec))

	require.Equal(t, 200, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.ApiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 200, resp.Code)
	require.Equal(t, "success", resp.Msg)
	require.Equal(t, map[string]interface{}{"hello": "world"}, resp.Data)
}

func TestSetErrorResponse(t *testing.T) {
	t.Run("web error keeps its status and message", func(t *testing.T) {
		rec := httptest.NewRecorder()

		setErrorResponse("test", models.NewWebError(404, "task not found", nil), rec)

		require.Equal(t, 404, rec.Code)

		var resp models.ApiResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 404, resp.Code)
		require.Equal(t, "task not found", resp.Msg)
	})

	t.Run("wrapped web error is unwrapped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		wrapped := fmt.Errorf("outer: %w", models.NewWebError(409, "conflict", nil))

		setErrorResponse("test", wrapped, rec)

		require.Equal(t, 409, rec.Code)
	})

	t.Run("plain error becomes a 500", func(t *testing.T) {
		rec := httptest.NewRecorder()

		setErrorResponse("test", fmt.Errorf("boom"), rec)

		require.Equal(t, 500, rec.Code)

		var resp models.ApiResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "boom", resp.Msg)
	})
}

func TestDecodeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/task/list?page=2&page_size=50&status=RUNNING&unknown=x", nil)

	var parsed ListTasksRequest
	require.NoError(t, decodeQuery(req, &parsed))
	require.Equal(t, 2, parsed.Page)
	require.Equal(t, 50, parsed.PageSize)
	require.Equal(t, "RUNNING", parsed.Status)
}

func TestMonitorStateFrom(t *testing.T) {
	p := &models.TaskProgress{
		TaskID:         "task-1",
		StockSymbol:    "AAPL",
		Status:         models.TaskStatusRunning,
		ProcessedItems: 4,
		TotalItems:     10,
	}

	state := monitorStateFrom(p)
	require.True(t, state.Running)
	require.Equal(t, "task-1", *state.TaskID)

	p.Status = models.TaskStatusCompleted
	state = monitorStateFrom(p)
	require.False(t, state.Running)
}
