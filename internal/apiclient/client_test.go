package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opspanel/opspanel/pkg/model"
)

func newTestClient(ts *httptest.Server) *Client {
	cfg := DefaultConfig()
	cfg.BaseURL = ts.URL
	return New(cfg)
}

func TestClient_List(t *testing.T) {
	expected := model.Page{
		Items:      []model.Item{{"id": "1", "level": "error"}, {"id": "2", "level": "warn"}},
		TotalCount: 2,
		Page:       1,
		PageSize:   25,
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logs", r.URL.Path)
		assert.Equal(t, "error", r.URL.Query().Get("search"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "25", r.URL.Query().Get("pageSize"))

		json.NewEncoder(w).Encode(expected)
	}))
	defer ts.Close()

	client := newTestClient(ts)
	page, err := client.List(context.Background(), model.ResourceLogs, model.ListFilter{
		Search: "error", Page: 1, PageSize: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, &expected, page)
}

func TestClient_Count(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/count", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"total": 314})
	}))
	defer ts.Close()

	client := newTestClient(ts)
	total, err := client.Count(context.Background(), model.ResourceUsers, model.ListFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 314, total)
}

func TestClient_Get(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u-7", r.URL.Path)
		json.NewEncoder(w).Encode(model.Item{"id": "u-7", "name": "alice"})
	}))
	defer ts.Close()

	client := newTestClient(ts)
	item, err := client.Get(context.Background(), model.ResourceUsers, "u-7")
	require.NoError(t, err)
	assert.Equal(t, "u-7", item.ID())
}

func TestClient_Delete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/logs/42", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := newTestClient(ts)
	assert.NoError(t, client.Delete(context.Background(), model.ResourceLogs, "42"))
}

func TestClient_DeleteBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/logs/batch", r.URL.Path)

		var ids []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ids))
		assert.Equal(t, []string{"1", "2", "3"}, ids)

		json.NewEncoder(w).Encode(map[string]any{"deletedCount": 2})
	}))
	defer ts.Close()

	client := newTestClient(ts)
	outcome, err := client.DeleteBatch(context.Background(), model.ResourceLogs, []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.SucceededCount)
	assert.Empty(t, outcome.FailedIDs)
}

func TestClient_DeleteBatch_AttributedFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"deletedCount": 2,
			"failedIds":    []string{"2"},
		})
	}))
	defer ts.Close()

	client := newTestClient(ts)
	outcome, err := client.DeleteBatch(context.Background(), model.ResourceLogs, []string{"1", "2", "3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, outcome.FailedIDs)
}

func TestClient_ApproveReject(t *testing.T) {
	var paths []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		paths = append(paths, r.URL.Path)
	}))
	defer ts.Close()

	client := newTestClient(ts)
	require.NoError(t, client.Approve(context.Background(), model.ResourcePermissionRequests, "p-1"))
	require.NoError(t, client.Reject(context.Background(), model.ResourcePermissionRequests, "p-2"))
	assert.Equal(t, []string{"/permission_requests/p-1/approve", "/permission_requests/p-2/reject"}, paths)
}

func TestClient_BulkApprove(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/permission_requests/bulk/approve", r.URL.Path)
		json.NewEncoder(w).Encode(model.BulkOutcome{SucceededCount: 2})
	}))
	defer ts.Close()

	client := newTestClient(ts)
	outcome, err := client.BulkApprove(context.Background(), model.ResourcePermissionRequests, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.SucceededCount)
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   model.ErrorKind
	}{
		{"not found", http.StatusNotFound, `{"error":"no such row"}`, model.KindNotFound},
		{"validation", http.StatusBadRequest, `{"error":"bad date range"}`, model.KindValidation},
		{"server", http.StatusInternalServerError, "", model.KindServer},
		{"unavailable", http.StatusServiceUnavailable, `{"message":"maintenance"}`, model.KindServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client := newTestClient(ts)
			_, err := client.List(context.Background(), model.ResourceLogs, model.ListFilter{Page: 1, PageSize: 10})
			require.Error(t, err)

			var apiErr *model.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestClient_ValidationMessageSurfacedVerbatim(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"endDate precedes startDate"}`))
	}))
	defer ts.Close()

	client := newTestClient(ts)
	_, err := client.List(context.Background(), model.ResourceLogs, model.ListFilter{Page: 1, PageSize: 10})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "endDate precedes startDate", apiErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	client := newTestClient(ts)
	_, err := client.List(context.Background(), model.ResourceLogs, model.ListFilter{Page: 1, PageSize: 10})

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, model.KindNetwork, apiErr.Kind)
	assert.True(t, apiErr.Retryable())
}

func TestClient_CanceledContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(ts)
	_, err := client.List(ctx, model.ResourceLogs, model.ListFilter{Page: 1, PageSize: 10})
	assert.ErrorIs(t, err, model.ErrCanceled)
}
