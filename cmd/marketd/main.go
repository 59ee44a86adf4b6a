package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mintbay/marketledger/internal/config"
	"github.com/mintbay/marketledger/internal/config/di"
	"github.com/mintbay/marketledger/internal/event"
	"go.uber.org/zap"
)

var container *di.Container

func main() {
	config.Init("marketd")
	container, _ = di.NewContainer()

	restoreLedger()

	if config.Get().IndexActions {
		container.GetElastic().InstallMappings()
		event.AddEventListener(event.MarketItemCreatedEvent, container.GetMarketIndexer().IndexListing)
		event.AddEventListener(event.MarketItemSoldEvent, container.GetMarketIndexer().IndexSale)
	}

	feed := container.GetFeed()
	event.AddEventListener(event.MarketItemCreatedEvent, feed.BroadcastListing)
	event.AddEventListener(event.MarketItemSoldEvent, feed.BroadcastSale)

	go health()

	zap.L().With(zap.String("port", config.Get().ApiPort)).Info("Marketplace started")

	if err := http.ListenAndServe(":"+config.Get().ApiPort, container.GetApiServer().Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start marketplace API")
	}
}

func restoreLedger() {
	transitions, err := container.GetJournal().All()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to read journal")
	}

	if err := container.GetLedger().Restore(transitions); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to restore ledger")
	}
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, router()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health endpoint")
	}
}

func router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
