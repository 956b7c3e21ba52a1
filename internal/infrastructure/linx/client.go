package linx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// Client implements order.Source against the LINX Commerce REST API.
// Every call is a JSON POST authenticated with basic auth.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient validates config and creates a Client.
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout(),
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	if config.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ order.Source = (*Client)(nil)

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// SearchOrders returns one page of order summaries. A vendor encoded cursor
// is turned into a CreatedDate filter in the configured zone; any other
// non-empty cursor is used as the filter value verbatim.
func (c *Client) SearchOrders(ctx context.Context, req order.SearchOrdersRequest) ([]order.RawOrder, error) {
	payload := searchOrdersRequest{
		Page: pageRequest{PageIndex: req.PageIndex, PageSize: req.PageSize},
	}

	if req.CreatedAfter != "" {
		since, err := order.VendorDateToAnalytic(req.CreatedAfter, c.config.Location)
		if err != nil {
			c.logger.Warn("cannot decode cursor, searching without date filter",
				zap.String("cursor", req.CreatedAfter),
				zap.Error(err),
			)
		} else {
			payload.Where = fmt.Sprintf("CreatedDate > %q", since)
		}
	}

	body, err := c.doRequest(ctx, "SearchOrders", pathSearchOrders, payload)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := decode(body, &resp); err != nil {
		return nil, c.invalidResponse("SearchOrders", err)
	}

	orders := make([]order.RawOrder, 0, len(resp.Result))
	for _, r := range resp.Result {
		orders = append(orders, order.RawOrder(r))
	}
	c.logger.Debug("searched orders",
		zap.Int("page_index", req.PageIndex),
		zap.String("where", payload.Where),
		zap.Int("orders", len(orders)),
	)
	return orders, nil
}

// GetOrderByNumber fetches the full order document. The request body is the
// order number as a JSON string.
func (c *Client) GetOrderByNumber(ctx context.Context, orderNumber string) (order.RawOrder, error) {
	body, err := c.doRequest(ctx, "GetOrderByNumber", pathGetOrderByNumber, orderNumber)
	if err != nil {
		return nil, err
	}

	raw, err := order.DecodeRawOrder(body)
	if err != nil {
		return nil, &order.TransportError{Target: "linx", Op: "GetOrderByNumber", Err: err}
	}
	return raw, nil
}

// ---------------------------------------------------------------------------
// Queue
// ---------------------------------------------------------------------------

// SearchQueueItems locks and returns the first page of queueID.
func (c *Client) SearchQueueItems(ctx context.Context, queueID, pageSize int) ([]order.QueueItem, error) {
	payload := searchQueueItemsRequest{
		QueueID:   queueID,
		LockItems: true,
		Page:      pageRequest{PageIndex: 0, PageSize: pageSize},
	}

	body, err := c.doRequest(ctx, "SearchQueueItems", pathSearchQueueItems, payload)
	if err != nil {
		return nil, err
	}

	var resp queueResponse
	if err := decode(body, &resp); err != nil {
		return nil, c.invalidResponse("SearchQueueItems", err)
	}

	items := make([]order.QueueItem, 0, len(resp.Result))
	for _, it := range resp.Result {
		id, err := it.QueueItemID.Int64()
		if err != nil {
			c.logger.Warn("queue item with invalid id", zap.String("queue_item_id", it.QueueItemID.String()))
			continue
		}
		key, _ := order.Stringify(it.EntityKeyValue)
		items = append(items, order.QueueItem{QueueItemID: id, EntityKeyValue: key})
	}
	return items, nil
}

// DequeueQueueItems acknowledges processed queue items.
func (c *Client) DequeueQueueItems(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.doRequest(ctx, "DequeueQueueItems", pathDequeueQueueItems, dequeueQueueItemsRequest{QueueItems: ids})
	return err
}

// Ping issues a one-order search. It does not lock queue items.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SearchOrders(ctx, order.SearchOrdersRequest{PageIndex: 0, PageSize: 1})
	return err
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

func (c *Client) doRequest(ctx context.Context, op, path string, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &order.TransportError{Target: "linx", Op: op, Err: err}
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("linx: failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("linx: failed to create request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &order.TransportError{
			Target: "linx",
			Op:     op,
			Err:    fmt.Errorf("%w: %v", order.ErrSourceUnavailable, err),
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &order.TransportError{
			Target: "linx",
			Op:     op,
			Err:    fmt.Errorf("%w: failed to read response: %v", order.ErrSourceUnavailable, err),
		}
	}

	c.logger.Debug("linx request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		sentinel := order.ErrSourceRequestFailed
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			sentinel = order.ErrSourceUnavailable
		}
		return nil, &order.TransportError{
			Target:     "linx",
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", sentinel, snippet(body)),
		}
	}
	return body, nil
}

func (c *Client) invalidResponse(op string, err error) error {
	return &order.TransportError{
		Target: "linx",
		Op:     op,
		Err:    fmt.Errorf("%w: %v", order.ErrSourceInvalidResponse, err),
	}
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func snippet(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
