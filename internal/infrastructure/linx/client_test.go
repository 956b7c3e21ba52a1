package linx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/betminds/linx-orders/internal/domain/order"
)

var brt = time.FixedZone("BRT", -3*3600)

func createMockLinxServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(&Config{
		BaseURL:  baseURL,
		Username: "api-user",
		Password: "secret",
		Location: brt,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return c
}

// captured records the last request the mock server received.
type captured struct {
	path string
	user string
	pass string
	body map[string]any
	raw  string
}

func recordRequest(t *testing.T, c *captured, r *http.Request) {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	c.path = r.URL.Path
	c.user, c.pass, _ = r.BasicAuth()
	c.raw = string(data)
	c.body = nil
	_ = json.Unmarshal(data, &c.body)
	assert.Equal(t, http.MethodPost, r.Method)
	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{"valid", Config{BaseURL: "https://linx.example.com/", Username: "u", Password: "p"}, nil},
		{"missing base url", Config{Username: "u", Password: "p"}, ErrLinxConfigMissingBaseURL},
		{"relative base url", Config{BaseURL: "linx.example.com", Username: "u", Password: "p"}, ErrLinxConfigInvalidBaseURL},
		{"missing username", Config{BaseURL: "https://linx.example.com", Password: "p"}, ErrLinxConfigMissingUsername},
		{"missing password", Config{BaseURL: "https://linx.example.com", Username: "u"}, ErrLinxConfigMissingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "https://linx.example.com", tt.config.BaseURL)
			assert.Equal(t, defaultTimeoutSeconds, tt.config.TimeoutSeconds)
			assert.NotNil(t, tt.config.Location)
		})
	}
}

// ---------------------------------------------------------------------------
// SearchOrders
// ---------------------------------------------------------------------------

func TestClient_SearchOrders_WithVendorCursor(t *testing.T) {
	var got captured
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"Result":[{"OrderID":101,"OrderNumber":"V-101"},{"OrderID":"102","OrderNumber":"V-102"}]}`))
	})

	orders, err := newTestClient(t, srv.URL).SearchOrders(context.Background(), order.SearchOrdersRequest{
		PageIndex:    3,
		PageSize:     100,
		CreatedAfter: "/Date(1700000000000)/",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/Sales/API.svc/web/SearchOrders", got.path)
	assert.Equal(t, "api-user", got.user)
	assert.Equal(t, "secret", got.pass)
	assert.Equal(t, `CreatedDate > "2023-11-14 19:13:20"`, got.body["Where"])
	assert.Equal(t, map[string]any{"PageIndex": float64(3), "PageSize": float64(100)}, got.body["Page"])

	require.Len(t, orders, 2)
	assert.Equal(t, "101", orders[0].String("OrderID"))
	assert.Equal(t, "V-102", orders[1].String("OrderNumber"))
}

func TestClient_SearchOrders_WithAnalyticCursor(t *testing.T) {
	var got captured
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"Result":[]}`))
	})

	_, err := newTestClient(t, srv.URL).SearchOrders(context.Background(), order.SearchOrdersRequest{
		PageSize:     100,
		CreatedAfter: "2024-02-01 08:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, `CreatedDate > "2024-02-01 08:00:00"`, got.body["Where"])
}

func TestClient_SearchOrders_WithoutCursor(t *testing.T) {
	var got captured
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"Result":null}`))
	})

	orders, err := newTestClient(t, srv.URL).SearchOrders(context.Background(), order.SearchOrdersRequest{PageSize: 100})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NotContains(t, got.body, "Where")
}

func TestClient_SearchOrders_HTTPErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"server error", http.StatusBadGateway, order.ErrSourceUnavailable},
		{"rate limited", http.StatusTooManyRequests, order.ErrSourceUnavailable},
		{"unauthorized", http.StatusUnauthorized, order.ErrSourceRequestFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"Message":"nope"}`))
			})

			_, err := newTestClient(t, srv.URL).SearchOrders(context.Background(), order.SearchOrdersRequest{PageSize: 1})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var terr *order.TransportError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, tt.status, terr.StatusCode)
			assert.Equal(t, "SearchOrders", terr.Op)
		})
	}
}

func TestClient_SearchOrders_InvalidJSON(t *testing.T) {
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := newTestClient(t, srv.URL).SearchOrders(context.Background(), order.SearchOrdersRequest{PageSize: 1})
	assert.ErrorIs(t, err, order.ErrSourceInvalidResponse)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).GetOrderByNumber(context.Background(), "V-1")
	assert.ErrorIs(t, err, order.ErrSourceUnavailable)
}

// ---------------------------------------------------------------------------
// GetOrderByNumber
// ---------------------------------------------------------------------------

func TestClient_GetOrderByNumber(t *testing.T) {
	var got captured
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"OrderID":101,"OrderNumber":"V-101","Total":"99.90","Items":[{"SKU":"A"}]}`))
	})

	raw, err := newTestClient(t, srv.URL).GetOrderByNumber(context.Background(), "V-101")
	require.NoError(t, err)

	assert.Equal(t, "/v1/Sales/API.svc/web/GetOrderByNumber", got.path)
	assert.Equal(t, `"V-101"`, got.raw)
	assert.Equal(t, json.Number("101"), raw.Value("OrderID"))
	assert.Len(t, raw.List("Items"), 1)
}

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

func TestClient_SearchQueueItems(t *testing.T) {
	var got captured
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"Result":[
			{"QueueItemID":501,"EntityKeyValue":"V-1"},
			{"QueueItemID":502,"EntityKeyValue":12345},
			{"QueueItemID":503,"EntityKeyValue":null}
		]}`))
	})

	items, err := newTestClient(t, srv.URL).SearchQueueItems(context.Background(), 31, 10)
	require.NoError(t, err)

	assert.Equal(t, "/v1/Queue/API.svc/web/SearchQueueItems", got.path)
	assert.Equal(t, float64(31), got.body["QueueID"])
	assert.Equal(t, true, got.body["LockItems"])
	assert.Equal(t, map[string]any{"PageIndex": float64(0), "PageSize": float64(10)}, got.body["Page"])

	assert.Equal(t, []order.QueueItem{
		{QueueItemID: 501, EntityKeyValue: "V-1"},
		{QueueItemID: 502, EntityKeyValue: "12345"},
		{QueueItemID: 503, EntityKeyValue: ""},
	}, items)
}

func TestClient_DequeueQueueItems(t *testing.T) {
	var got captured
	calls := 0
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		recordRequest(t, &got, r)
		_, _ = w.Write([]byte(`{"IsValid":true}`))
	})
	c := newTestClient(t, srv.URL)

	require.NoError(t, c.DequeueQueueItems(context.Background(), []int64{501, 502}))
	assert.Equal(t, "/v1/Queue/API.svc/web/DequeueQueueItems", got.path)
	assert.Equal(t, `{"QueueItems":[501,502]}`, got.raw)

	require.NoError(t, c.DequeueQueueItems(context.Background(), nil))
	assert.Equal(t, 1, calls, "empty acknowledgements are not sent")
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	srv := createMockLinxServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Result":[]}`))
	})
	c, err := NewClient(&Config{
		BaseURL:           srv.URL,
		Username:          "u",
		Password:          "p",
		RequestsPerSecond: 0.001,
	})
	require.NoError(t, err)

	require.NoError(t, c.Ping(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Ping(ctx)
	require.Error(t, err)

	var terr *order.TransportError
	assert.True(t, errors.As(err, &terr))
}
