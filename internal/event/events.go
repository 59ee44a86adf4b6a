package event

type Type string

const (
	MarketItemCreatedEvent Type = "MarketItemCreatedEvent"
	MarketItemSoldEvent    Type = "MarketItemSoldEvent"
)
