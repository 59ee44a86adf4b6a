package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/mintbay/marketledger/internal/entity"
	"go.uber.org/zap"
)

type feedMessage struct {
	Event string            `json:"event"`
	Item  entity.MarketItem `json:"item"`
}

// Feed broadcasts committed market transitions to websocket subscribers.
type Feed struct {
	mu       sync.Mutex
	upgrader websocket.Upgrader
	conns    map[*websocket.Conn]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		conns:    map[*websocket.Conn]struct{}{},
	}
}

func (f *Feed) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().With(zap.Error(err)).Warn("Feed: Failed to upgrade connection")
		return
	}

	f.mu.Lock()
	f.conns[conn] = struct{}{}
	f.mu.Unlock()

	zap.L().With(zap.String("remote", conn.RemoteAddr().String())).Debug("Feed: Subscriber connected")

	go f.drain(conn)
}

// drain discards inbound frames until the subscriber disconnects.
func (f *Feed) drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			f.remove(conn)
			return
		}
	}
}

func (f *Feed) remove(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.conns, conn)
	f.mu.Unlock()

	_ = conn.Close()
}

// BroadcastListing and BroadcastSale are registered as ledger event
// listeners.

func (f *Feed) BroadcastListing(msg interface{}) {
	listing, ok := msg.(entity.MarketListing)
	if !ok {
		zap.L().With(zap.String("event", "listing")).Error("Feed: Unexpected event payload")
		return
	}

	f.broadcast("listing", listing.Item)
}

func (f *Feed) BroadcastSale(msg interface{}) {
	item, ok := msg.(entity.MarketItem)
	if !ok {
		zap.L().With(zap.String("event", "sale")).Error("Feed: Unexpected event payload")
		return
	}

	f.broadcast("sale", item)
}

func (f *Feed) broadcast(eventName string, item entity.MarketItem) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for conn := range f.conns {
		if err := conn.WriteJSON(feedMessage{Event: eventName, Item: item}); err != nil {
			zap.L().With(zap.Error(err)).Debug("Feed: Dropping subscriber")
			delete(f.conns, conn)
			_ = conn.Close()
		}
	}
}
