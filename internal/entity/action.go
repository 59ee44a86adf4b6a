package entity

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
)

type ActionType string

const (
	ListingAction ActionType = "listing"
	SaleAction    ActionType = "sale"
)

// MarketAction is the read-model document indexed for every committed
// ledger transition.
type MarketAction struct {
	ItemId        uint64     `json:"itemId"`
	AssetContract Address    `json:"assetContract"`
	TokenId       uint64     `json:"tokenId"`
	Action        ActionType `json:"action"`
	Seller        Address    `json:"seller"`
	Buyer         Address    `json:"buyer"`
	Price         string     `json:"price"`
	Fee           string     `json:"fee"`
	At            time.Time  `json:"at"`
}

func (a MarketAction) Slug() string {
	return slug.Make(fmt.Sprintf("action-%s-%d", a.Action, a.ItemId))
}
