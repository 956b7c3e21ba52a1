// Package testutil provides a fake LINX Commerce API for end-to-end tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/betminds/linx-orders/internal/domain/order"
)

// Credentials accepted by FakeLinx.
const (
	FakeLinxUser     = "api-user"
	FakeLinxPassword = "api-password"
)

var whereCreatedAfter = regexp.MustCompile(`CreatedDate > "([^"]+)"`)

type queueEntry struct {
	id          int64
	orderNumber string
}

// FakeLinx serves the four LINX endpoints the sync uses from in-memory
// orders and queue items.
type FakeLinx struct {
	Server   *httptest.Server
	location *time.Location

	mu             sync.Mutex
	orders         []order.RawOrder
	created        []time.Time
	queue          []queueEntry
	dequeued       []int64
	detailCalls    map[string]int
	searches       []string
	failSearchPage int
}

// NewFakeLinx starts a fake whose filter dates are read in loc.
func NewFakeLinx(t *testing.T, loc *time.Location) *FakeLinx {
	t.Helper()
	f := &FakeLinx{
		location:       loc,
		detailCalls:    make(map[string]int),
		failSearchPage: -1,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/Sales/API.svc/web/SearchOrders", f.searchOrders)
	mux.HandleFunc("POST /v1/Sales/API.svc/web/GetOrderByNumber", f.getOrderByNumber)
	mux.HandleFunc("POST /v1/Queue/API.svc/web/SearchQueueItems", f.searchQueueItems)
	mux.HandleFunc("POST /v1/Queue/API.svc/web/DequeueQueueItems", f.dequeueQueueItems)

	f.Server = httptest.NewServer(f.requireAuth(mux))
	t.Cleanup(f.Server.Close)
	return f
}

// URL is the base URL to configure the client with.
func (f *FakeLinx) URL() string {
	return f.Server.URL
}

// AddOrder registers a full order document. Orders must be added in
// created order.
func (f *FakeLinx) AddOrder(orderID, orderNumber string, created time.Time, extra map[string]any) {
	doc := order.RawOrder{
		"OrderID":       orderID,
		"OrderNumber":   orderNumber,
		"CreatedDate":   fmt.Sprintf("/Date(%d-0300)/", created.UnixMilli()),
		"Total":         "199.90",
		"CustomerName":  "Cliente " + orderNumber,
		"CustomerEmail": orderNumber + "@example.com",
	}
	for k, v := range extra {
		doc[k] = v
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, doc)
	f.created = append(f.created, created)
}

// Enqueue adds an integration queue item pointing at orderNumber.
func (f *FakeLinx) Enqueue(id int64, orderNumber string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, queueEntry{id: id, orderNumber: orderNumber})
}

// FailSearchPage makes SearchOrders answer 503 for pageIndex.
func (f *FakeLinx) FailSearchPage(pageIndex int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSearchPage = pageIndex
}

// Dequeued returns the acknowledged queue item ids.
func (f *FakeLinx) Dequeued() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.dequeued)
}

// QueueLen returns the number of unacknowledged items.
func (f *FakeLinx) QueueLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// DetailCalls returns how often GetOrderByNumber was called for orderNumber.
func (f *FakeLinx) DetailCalls(orderNumber string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls[orderNumber]
}

// Searches returns the Where filter of every SearchOrders call.
func (f *FakeLinx) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.searches)
}

func (f *FakeLinx) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != FakeLinxUser || pass != FakeLinxPassword {
			http.Error(w, `{"Message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeLinx) searchOrders(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Page struct {
			PageIndex int
			PageSize  int
		}
		Where string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, req.Where)

	if req.Page.PageIndex == f.failSearchPage {
		http.Error(w, `{"Message":"service unavailable"}`, http.StatusServiceUnavailable)
		return
	}

	var since time.Time
	if m := whereCreatedAfter.FindStringSubmatch(req.Where); m != nil {
		t, err := time.ParseInLocation(order.AnalyticLayout, m[1], f.location)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		since = t
	}

	var matched []map[string]any
	for i, doc := range f.orders {
		if !since.IsZero() && !f.created[i].Truncate(time.Second).After(since) {
			continue
		}
		matched = append(matched, map[string]any{
			"OrderID":     doc["OrderID"],
			"OrderNumber": doc["OrderNumber"],
		})
	}

	start := req.Page.PageIndex * req.Page.PageSize
	page := []map[string]any{}
	if start < len(matched) {
		page = matched[start:min(start+req.Page.PageSize, len(matched))]
	}
	writeJSON(w, map[string]any{"Result": page})
}

func (f *FakeLinx) getOrderByNumber(w http.ResponseWriter, r *http.Request) {
	var number string
	if err := json.NewDecoder(r.Body).Decode(&number); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls[number]++
	for _, doc := range f.orders {
		if doc["OrderNumber"] == number {
			writeJSON(w, doc)
			return
		}
	}
	http.Error(w, `{"Message":"order not found"}`, http.StatusNotFound)
}

func (f *FakeLinx) searchQueueItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueID   int
		LockItems bool
		Page      struct {
			PageIndex int
			PageSize  int
		}
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	items := []map[string]any{}
	for _, e := range f.queue[:min(req.Page.PageSize, len(f.queue))] {
		items = append(items, map[string]any{"QueueItemID": e.id, "EntityKeyValue": e.orderNumber})
	}
	writeJSON(w, map[string]any{"Result": items})
}

func (f *FakeLinx) dequeueQueueItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueItems []int64
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.dequeued = append(f.dequeued, req.QueueItems...)
	f.queue = slices.DeleteFunc(f.queue, func(e queueEntry) bool {
		return slices.Contains(req.QueueItems, e.id)
	})
	writeJSON(w, map[string]any{"IsValid": true})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
