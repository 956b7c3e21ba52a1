package ordersync

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// MockSource is a mock implementation of order.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) SearchOrders(ctx context.Context, req order.SearchOrdersRequest) ([]order.RawOrder, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.RawOrder), args.Error(1)
}

func (m *MockSource) GetOrderByNumber(ctx context.Context, orderNumber string) (order.RawOrder, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(order.RawOrder), args.Error(1)
}

func (m *MockSource) SearchQueueItems(ctx context.Context, queueID, pageSize int) ([]order.QueueItem, error) {
	args := m.Called(ctx, queueID, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.QueueItem), args.Error(1)
}

func (m *MockSource) DequeueQueueItems(ctx context.Context, ids []int64) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockRepository is a mock implementation of order.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) EnsureTable(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRepository) MaxCreatedDate(ctx context.Context) (*time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockRepository) CountByOrderID(ctx context.Context, orderID string) (int64, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CountByOrderNumber(ctx context.Context, orderNumber string) (int64, error) {
	args := m.Called(ctx, orderNumber)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Insert(ctx context.Context, orders []*order.NormalizedOrder) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockRepository) CountDuplicates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) RemoveDuplicates(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockCache is a mock implementation of KnownOrderCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Contains(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Add(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockArchiver is a mock implementation of ReportArchiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, mode Mode, runID string, report any) error {
	args := m.Called(ctx, mode, runID, report)
	return args.Error(0)
}

// fakeClock advances on Sleep instead of blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// detailDocument is a minimal valid LINX order document.
func detailDocument(orderID, orderNumber string) order.RawOrder {
	return order.RawOrder{
		"OrderID":     orderID,
		"OrderNumber": orderNumber,
		"CreatedDate": "/Date(1700000000000-0300)/",
		"Total":       "10.50",
	}
}

func searchEntry(orderID, orderNumber string) order.RawOrder {
	return order.RawOrder{"OrderID": orderID, "OrderNumber": orderNumber}
}

func insertedOrder(orderID string) any {
	return mock.MatchedBy(func(orders []*order.NormalizedOrder) bool {
		return len(orders) == 1 && orders[0].OrderID == orderID
	})
}
