package ordersync

import "errors"

var (
	ErrCursorUnavailable = errors.New("ordersync: cannot read import cursor")
	ErrPageFetchFailed   = errors.New("ordersync: order page fetch failed")
	ErrQueueFetchFailed  = errors.New("ordersync: queue fetch failed")
	ErrDequeueFailed     = errors.New("ordersync: queue acknowledgement failed")
	ErrSinkUnavailable   = errors.New("ordersync: sink unavailable")
)
