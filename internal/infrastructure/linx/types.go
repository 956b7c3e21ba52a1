package linx

import "encoding/json"

// API endpoints, relative to Config.BaseURL
const (
	pathSearchOrders      = "/v1/Sales/API.svc/web/SearchOrders"
	pathGetOrderByNumber  = "/v1/Sales/API.svc/web/GetOrderByNumber"
	pathSearchQueueItems  = "/v1/Queue/API.svc/web/SearchQueueItems"
	pathDequeueQueueItems = "/v1/Queue/API.svc/web/DequeueQueueItems"
)

const maxResponseSize = 10 << 20

type pageRequest struct {
	PageIndex int `json:"PageIndex"`
	PageSize  int `json:"PageSize"`
}

type searchOrdersRequest struct {
	Page  pageRequest `json:"Page"`
	Where string      `json:"Where,omitempty"`
}

type searchQueueItemsRequest struct {
	QueueID   int         `json:"QueueID"`
	LockItems bool        `json:"LockItems"`
	Page      pageRequest `json:"Page"`
}

type dequeueQueueItemsRequest struct {
	QueueItems []int64 `json:"QueueItems"`
}

// listResponse is the envelope of every LINX search call.
type listResponse struct {
	Result []map[string]any `json:"Result"`
}

// queueItem mirrors a SearchQueueItems entry. EntityKeyValue is usually a
// string but numeric keys have been observed.
type queueItem struct {
	QueueItemID    json.Number `json:"QueueItemID"`
	EntityKeyValue any         `json:"EntityKeyValue"`
}

type queueResponse struct {
	Result []queueItem `json:"Result"`
}
