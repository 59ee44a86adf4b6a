package factory

import (
	"time"

	"github.com/mintbay/marketledger/internal/entity"
)

func CreateListingAction(item entity.MarketItem, fee string) entity.MarketAction {
	return entity.MarketAction{
		ItemId:        item.ItemId,
		AssetContract: item.AssetContract,
		TokenId:       item.TokenId,
		Action:        entity.ListingAction,
		Seller:        item.Seller,
		Buyer:         "",
		Price:         item.Price.String(),
		Fee:           fee,
		At:            time.Now(),
	}
}

func CreateSaleAction(item entity.MarketItem) entity.MarketAction {
	return entity.MarketAction{
		ItemId:        item.ItemId,
		AssetContract: item.AssetContract,
		TokenId:       item.TokenId,
		Action:        entity.SaleAction,
		Seller:        item.Seller,
		Buyer:         item.Owner,
		Price:         item.Price.String(),
		Fee:           "0",
		At:            time.Now(),
	}
}
