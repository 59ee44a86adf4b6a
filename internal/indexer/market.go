package indexer

import (
	"errors"

	"github.com/mintbay/marketledger/internal/dev"
	"github.com/mintbay/marketledger/internal/elastic_search"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/factory"
	"go.uber.org/zap"
)

// MarketIndexer maintains the action read model. It is driven by ledger
// events; the ledger itself never depends on it.
type MarketIndexer interface {
	IndexListing(msg interface{})
	IndexSale(msg interface{})
}

type marketIndexer struct {
	elastic elastic_search.Index
}

func NewMarketIndexer(elastic elastic_search.Index) MarketIndexer {
	return marketIndexer{elastic}
}

func (i marketIndexer) IndexListing(msg interface{}) {
	listing, ok := msg.(entity.MarketListing)
	if !ok {
		i.recordError("IndexListing")
		return
	}

	zap.L().With(
		zap.Uint64("itemId", listing.Item.ItemId),
		zap.Uint64("tokenId", listing.Item.TokenId),
		zap.String("fee", listing.Fee),
	).Info("Index listing action")

	i.elastic.AddIndexRequest(elastic_search.MarketActionIndex.Get(), factory.CreateListingAction(listing.Item, listing.Fee))
	i.elastic.BatchPersist()
}

func (i marketIndexer) IndexSale(msg interface{}) {
	item, ok := msg.(entity.MarketItem)
	if !ok {
		i.recordError("IndexSale")
		return
	}

	zap.L().With(
		zap.Uint64("itemId", item.ItemId),
		zap.String("buyer", item.Owner.String()),
	).Info("Index sale action")

	i.elastic.AddIndexRequest(elastic_search.MarketActionIndex.Get(), factory.CreateSaleAction(item))
	i.elastic.BatchPersist()
}

func (i marketIndexer) recordError(name string) {
	zap.L().With(zap.String("handler", name)).Error("MarketIndexer: Unexpected event payload")

	i.elastic.AddIndexRequest(
		elastic_search.DevErrorIndex.Get(),
		dev.NewError("marketIndexer", name, errors.New("unexpected event payload"), nil),
	)
}
