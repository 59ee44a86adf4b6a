package entity

import (
	"fmt"
	"math/big"

	"github.com/gosimple/slug"
)

// MarketItem tracks one listing through its lifecycle. While Sold is false
// the ledger holds custody of the token and Owner is the ledger's own
// address; once sold, Owner is the buyer.
type MarketItem struct {
	ItemId        uint64   `json:"itemId"`
	AssetContract Address  `json:"assetContract"`
	TokenId       uint64   `json:"tokenId"`
	Seller        Address  `json:"seller"`
	Owner         Address  `json:"owner"`
	Price         *big.Int `json:"price"`
	Sold          bool     `json:"sold"`
}

func (i MarketItem) Slug() string {
	return CreateItemSlug(i.ItemId)
}

func CreateItemSlug(itemId uint64) string {
	return slug.Make(fmt.Sprintf("item-%d", itemId))
}
