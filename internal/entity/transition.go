package entity

import "time"

type TransitionKind string

const (
	ItemListed TransitionKind = "listed"
	ItemSold   TransitionKind = "sold"
)

// Transition is one entry of the ledger's totally-ordered transaction log.
// Seq is assigned by the journal on append, in commit order.
type Transition struct {
	Seq  uint64         `json:"seq"`
	Kind TransitionKind `json:"kind"`
	Item MarketItem     `json:"item"`
	At   time.Time      `json:"at"`
}
