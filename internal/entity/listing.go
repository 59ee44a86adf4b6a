package entity

// MarketListing is the creation-event payload: the item record plus the
// listing fee actually collected for it. The fee is a ledger parameter
// that can change at runtime, so consumers must not reconstruct it from
// configuration.
type MarketListing struct {
	Item MarketItem `json:"item"`
	Fee  string     `json:"fee"`
}
