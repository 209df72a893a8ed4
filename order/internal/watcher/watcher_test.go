package watcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/plateful/plateful/order/internal/client"
	"github.com/plateful/plateful/order/pkg/lifecycle"
	"github.com/plateful/plateful/order/pkg/response"
)

type fakePublisher struct {
	mu       sync.Mutex
	messages []StatusChange
}

func (f *fakePublisher) Publish(
	ctx context.Context,
	channel string,
	message interface{},
) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	change := StatusChange{}
	if raw, ok := message.([]byte); ok {
		_ = json.Unmarshal(raw, &change)
	}
	f.messages = append(f.messages, change)
	return redis.NewIntResult(1, nil)
}

func (f *fakePublisher) published() []StatusChange {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StatusChange{}, f.messages...)
}

type statusStub struct {
	server *httptest.Server

	mu     sync.Mutex
	status lifecycle.Status
}

func newStatusStub(initial lifecycle.Status) *statusStub {
	stub := &statusStub{status: initial}
	router := mux.NewRouter()
	router.HandleFunc("/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		data, _ := json.Marshal(response.Order{
			Id:     mux.Vars(r)["orderId"],
			Status: stub.status,
		})
		_ = json.NewEncoder(w).Encode(response.Envelope{Success: true, Data: data})
	}).Methods(http.MethodGet)
	stub.server = httptest.NewServer(router)
	return stub
}

func (s *statusStub) set(status lifecycle.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func eventually(t *testing.T, timeout time.Duration, condition func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcherPublishesStatusChanges(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := newStatusStub(lifecycle.StatusPending)
	defer stub.server.Close()
	publisher := &fakePublisher{}

	w := New(c, client.NewOrdersClient(stub.server.URL), publisher, 10*time.Millisecond)
	w.Track(c, "order-1")

	eventually(t, 2*time.Second, func() bool { return len(publisher.published()) >= 1 })
	first := publisher.published()[0]
	assert.Equal(t, "order-1", first.OrderId)
	assert.Equal(t, lifecycle.Status(""), first.Previous)
	assert.Equal(t, lifecycle.StatusPending, first.Current)

	stub.set(lifecycle.StatusConfirmed)
	eventually(t, 2*time.Second, func() bool { return len(publisher.published()) >= 2 })
	second := publisher.published()[1]
	assert.Equal(t, lifecycle.StatusPending, second.Previous)
	assert.Equal(t, lifecycle.StatusConfirmed, second.Current)
}

func TestWatcherStopsAtTerminalStatus(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := newStatusStub(lifecycle.StatusDelivered)
	defer stub.server.Close()
	publisher := &fakePublisher{}

	w := New(c, client.NewOrdersClient(stub.server.URL), publisher, 10*time.Millisecond)
	w.Track(c, "order-1")

	eventually(t, 2*time.Second, func() bool { return len(publisher.published()) == 1 })
	eventually(t, 2*time.Second, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, tracked := w.tracked["order-1"]
		return !tracked
	})
	assert.Len(t, publisher.published(), 1)
}

func TestTrackIsIdempotent(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	defer cancel()
	stub := newStatusStub(lifecycle.StatusPending)
	defer stub.server.Close()
	publisher := &fakePublisher{}

	w := New(c, client.NewOrdersClient(stub.server.URL), publisher, time.Hour)
	w.Track(c, "order-1")
	w.Track(c, "order-1")

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.tracked, 1)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	c, cancel := context.WithCancel(context.Background())
	stub := newStatusStub(lifecycle.StatusPending)
	defer stub.server.Close()
	publisher := &fakePublisher{}

	w := New(c, client.NewOrdersClient(stub.server.URL), publisher, 10*time.Millisecond)
	w.Track(c, "order-1")
	eventually(t, 2*time.Second, func() bool { return len(publisher.published()) >= 1 })

	cancel()
	eventually(t, 2*time.Second, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.tracked) == 0
	})
}
