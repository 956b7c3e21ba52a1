package ordersync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"github.com/betminds/linx-orders/internal/domain/order"
)

func TestDedupGuard_Exists(t *testing.T) {
	tests := []struct {
		name     string
		byNumber bool
		count    int64
		err      error
		expected bool
	}{
		{"present by id", false, 1, nil, true},
		{"absent by id", false, 0, nil, false},
		{"present by number", true, 2, nil, true},
		{"query error fails open", false, 0, errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			method := "CountByOrderID"
			if tt.byNumber {
				method = "CountByOrderNumber"
			}
			repo.On(method, mock.Anything, "42").Return(tt.count, tt.err)

			guard := NewDedupGuard(repo, nil, zaptest.NewLogger(t))
			assert.Equal(t, tt.expected, guard.Exists(context.Background(), "42", tt.byNumber))
			repo.AssertExpectations(t)
		})
	}
}

func TestDedupGuard_EmptyValue(t *testing.T) {
	repo := new(MockRepository)
	guard := NewDedupGuard(repo, nil, zaptest.NewLogger(t))

	assert.False(t, guard.Exists(context.Background(), "", false))
	repo.AssertNotCalled(t, "CountByOrderID", mock.Anything, mock.Anything)
}

func TestDedupGuard_CacheHitSkipsSink(t *testing.T) {
	repo := new(MockRepository)
	cache := new(MockCache)
	cache.On("Contains", mock.Anything, "id:42").Return(true, nil)

	guard := NewDedupGuard(repo, cache, zaptest.NewLogger(t))
	assert.True(t, guard.Exists(context.Background(), "42", false))
	repo.AssertNotCalled(t, "CountByOrderID", mock.Anything, mock.Anything)
}

func TestDedupGuard_CacheErrorFallsThrough(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CountByOrderNumber", mock.Anything, "V-1").Return(int64(1), nil)
	cache := new(MockCache)
	cache.On("Contains", mock.Anything, "number:V-1").Return(false, errors.New("redis down"))
	cache.On("Add", mock.Anything, "number:V-1").Return(errors.New("redis down"))

	guard := NewDedupGuard(repo, cache, zaptest.NewLogger(t))
	assert.True(t, guard.Exists(context.Background(), "V-1", true))
	cache.AssertExpectations(t)
}

func TestDedupGuard_NegativeAnswersAreNotCached(t *testing.T) {
	repo := new(MockRepository)
	repo.On("CountByOrderID", mock.Anything, "7").Return(int64(0), nil)
	cache := new(MockCache)
	cache.On("Contains", mock.Anything, "id:7").Return(false, nil)

	guard := NewDedupGuard(repo, cache, zaptest.NewLogger(t))
	assert.False(t, guard.Exists(context.Background(), "7", false))
	cache.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestDedupGuard_Remember(t *testing.T) {
	cache := new(MockCache)
	cache.On("Add", mock.Anything, "id:1").Return(nil)
	cache.On("Add", mock.Anything, "number:V-1").Return(nil)

	guard := NewDedupGuard(new(MockRepository), cache, zaptest.NewLogger(t))
	guard.Remember(context.Background(), &order.NormalizedOrder{OrderID: "1", OrderNumber: "V-1"})
	cache.AssertExpectations(t)
}
