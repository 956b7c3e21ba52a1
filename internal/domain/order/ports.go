package order

import (
	"context"
	"time"
)

// ---------------------------------------------------------------------------
// Source port
// ---------------------------------------------------------------------------

// SearchOrdersRequest asks for one page of the order search. CreatedAfter is
// the cursor, either vendor encoded (/Date(ms)/) or already in AnalyticLayout;
// empty means no filter.
type SearchOrdersRequest struct {
	PageIndex    int
	PageSize     int
	CreatedAfter string
}

// QueueItem is one entry of the LINX integration queue. EntityKeyValue holds
// the order number.
type QueueItem struct {
	QueueItemID    int64
	EntityKeyValue string
}

// Source is the remote order platform.
type Source interface {
	// SearchOrders returns one page of order summaries (OrderID, OrderNumber).
	// An empty page means the search is exhausted.
	SearchOrders(ctx context.Context, req SearchOrdersRequest) ([]RawOrder, error)

	// GetOrderByNumber fetches the full order document.
	GetOrderByNumber(ctx context.Context, orderNumber string) (RawOrder, error)

	// SearchQueueItems returns up to pageSize items of queueID, locking them
	// for this consumer.
	SearchQueueItems(ctx context.Context, queueID, pageSize int) ([]QueueItem, error)

	// DequeueQueueItems acknowledges processed items.
	DequeueQueueItems(ctx context.Context, ids []int64) error
}

// ---------------------------------------------------------------------------
// Sink port
// ---------------------------------------------------------------------------

// Repository is the analytic sink. It is append-only; duplicates are removed
// by RemoveDuplicates.
type Repository interface {
	// EnsureTable creates the orders table when HasTable reports it missing.
	EnsureTable(ctx context.Context) error

	// MaxCreatedDate returns the newest created_date, nil for an empty table.
	MaxCreatedDate(ctx context.Context) (*time.Time, error)

	CountByOrderID(ctx context.Context, orderID string) (int64, error)
	CountByOrderNumber(ctx context.Context, orderNumber string) (int64, error)

	// Insert appends rows in one batch.
	Insert(ctx context.Context, orders []*NormalizedOrder) error

	// CountDuplicates returns how many rows RemoveDuplicates would delete.
	CountDuplicates(ctx context.Context) (int64, error)

	// RemoveDuplicates keeps the newest row per order_id and deletes the rest.
	RemoveDuplicates(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}
