package ledger

import (
	"errors"
	"iter"
	"math/big"
	"sort"
	"sync"

	"github.com/mintbay/marketledger/internal/bank"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/event"
	"github.com/mintbay/marketledger/internal/token"
	"go.uber.org/zap"
)

// Journal receives every committed transition, in commit order. Append
// failures abort the transition.
type Journal interface {
	Append(kind entity.TransitionKind, item entity.MarketItem) error
}

// Ledger is the marketplace state machine. Every mutating call runs to
// completion under a single lock, so transitions form a totally-ordered
// log and per-item checks never interleave.
type Ledger interface {
	CreateMarketItem(caller, assetContract entity.Address, tokenId uint64, price, payment *big.Int) (uint64, error)
	CreateMarketSale(caller, assetContract entity.Address, itemId uint64, payment *big.Int) error
	FetchMarketItems() iter.Seq[entity.MarketItem]
	GetListingPrice() *big.Int
	UpdateListingFee(caller entity.Address, fee *big.Int) error

	GetItem(itemId uint64) (entity.MarketItem, error)
	ItemsSold() uint64
	Address() entity.Address
	Restore(transitions []entity.Transition) error
}

type ledger struct {
	mu sync.Mutex

	address      entity.Address
	feeRecipient entity.Address
	listingFee   *big.Int

	tokens  token.Registry
	bank    bank.Bank
	journal Journal

	items      map[uint64]*entity.MarketItem
	nextItemId uint64
	itemsSold  uint64
}

// NewLedger creates a ledger holding escrow at the given address. The
// journal may be nil, in which case transitions are not persisted.
func NewLedger(address, feeRecipient entity.Address, listingFee *big.Int, tokens token.Registry, bank bank.Bank, journal Journal) Ledger {
	return &ledger{
		address:      address,
		feeRecipient: feeRecipient,
		listingFee:   new(big.Int).Set(listingFee),
		tokens:       tokens,
		bank:         bank,
		journal:      journal,
		items:        map[uint64]*entity.MarketItem{},
	}
}

func (l *ledger) Address() entity.Address {
	return l.address
}

// CreateMarketItem lists a token for sale. The caller must hold the token
// and attach exactly the listing fee; custody moves to the ledger and the
// fee is forwarded to the fee recipient. The transition is all-or-nothing:
// any failure unwinds the record and every transfer already performed.
func (l *ledger) CreateMarketItem(caller, assetContract entity.Address, tokenId uint64, price, payment *big.Int) (uint64, error) {
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if payment == nil || payment.Cmp(l.listingFee) != 0 {
		return 0, ErrInsufficientFee
	}

	contract, err := l.tokens.Resolve(assetContract)
	if err != nil {
		return 0, err
	}

	owner, err := contract.OwnerOf(tokenId)
	if err != nil {
		return 0, err
	}
	if owner != caller {
		return 0, ErrNotAssetOwner
	}

	// Local state commits before any call out.
	l.nextItemId++
	item := &entity.MarketItem{
		ItemId:        l.nextItemId,
		AssetContract: assetContract,
		TokenId:       tokenId,
		Seller:        caller,
		Owner:         l.address,
		Price:         new(big.Int).Set(price),
		Sold:          false,
	}
	l.items[item.ItemId] = item

	if err := contract.TransferFrom(l.address, caller, l.address, tokenId); err != nil {
		l.unwindCreate(item.ItemId)
		if errors.Is(err, token.ErrNotAuthorized) {
			return 0, ErrNotAssetOwner
		}
		return 0, err
	}

	if err := l.bank.Transfer(caller, l.feeRecipient, l.listingFee); err != nil {
		_ = contract.TransferFrom(l.address, l.address, caller, tokenId)
		l.unwindCreate(item.ItemId)
		return 0, err
	}

	if err := l.append(entity.ItemListed, *item); err != nil {
		_ = l.bank.Transfer(l.feeRecipient, caller, l.listingFee)
		_ = contract.TransferFrom(l.address, l.address, caller, tokenId)
		l.unwindCreate(item.ItemId)
		return 0, err
	}

	zap.L().With(
		zap.Uint64("itemId", item.ItemId),
		zap.String("assetContract", assetContract.String()),
		zap.Uint64("tokenId", tokenId),
		zap.String("seller", caller.String()),
		zap.String("price", price.String()),
	).Info("Market item created")

	event.EmitEvent(event.MarketItemCreatedEvent, entity.MarketListing{
		Item: copyItem(*item),
		Fee:  l.listingFee.String(),
	})

	return item.ItemId, nil
}

// CreateMarketSale sells a listed item to the caller. Payment moves to the
// seller and custody to the buyer, atomically. The lock serializes the whole
// transition, and the sold flag and counters are committed before the call
// outs, so any transfer failure only has to revert local state in reverse
// order.
func (l *ledger) CreateMarketSale(caller, assetContract entity.Address, itemId uint64, payment *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[itemId]
	if !ok || item.AssetContract != assetContract {
		return ErrItemNotFound
	}

	if item.Sold {
		return ErrAlreadySold
	}

	if payment == nil || payment.Cmp(item.Price) != 0 {
		return ErrWrongPayment
	}

	contract, err := l.tokens.Resolve(assetContract)
	if err != nil {
		return err
	}

	item.Owner = caller
	item.Sold = true
	l.itemsSold++

	unwind := func() {
		item.Owner = l.address
		item.Sold = false
		l.itemsSold--
	}

	if err := l.bank.Transfer(caller, item.Seller, item.Price); err != nil {
		unwind()
		return err
	}

	if err := contract.TransferFrom(l.address, l.address, caller, item.TokenId); err != nil {
		_ = l.bank.Transfer(item.Seller, caller, item.Price)
		unwind()
		return err
	}

	if err := l.append(entity.ItemSold, *item); err != nil {
		_ = contract.TransferFrom(l.address, caller, l.address, item.TokenId)
		_ = l.bank.Transfer(item.Seller, caller, item.Price)
		unwind()
		return err
	}

	zap.L().With(
		zap.Uint64("itemId", itemId),
		zap.String("buyer", caller.String()),
		zap.String("seller", item.Seller.String()),
		zap.String("price", item.Price.String()),
	).Info("Market item sold")

	event.EmitEvent(event.MarketItemSoldEvent, copyItem(*item))

	return nil
}

// FetchMarketItems returns the unsold items in ascending itemId order. The
// sequence iterates a snapshot taken under the lock, so it can be restarted
// and never observes a concurrent transition mid-enumeration.
func (l *ledger) FetchMarketItems() iter.Seq[entity.MarketItem] {
	l.mu.Lock()
	unsold := make([]entity.MarketItem, 0, len(l.items))
	for _, item := range l.items {
		if !item.Sold {
			unsold = append(unsold, copyItem(*item))
		}
	}
	l.mu.Unlock()

	sort.Slice(unsold, func(i, j int) bool {
		return unsold[i].ItemId < unsold[j].ItemId
	})

	return func(yield func(entity.MarketItem) bool) {
		for _, item := range unsold {
			if !yield(item) {
				return
			}
		}
	}
}

func (l *ledger) GetListingPrice() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return new(big.Int).Set(l.listingFee)
}

func (l *ledger) UpdateListingFee(caller entity.Address, fee *big.Int) error {
	if fee == nil || fee.Sign() < 0 {
		return ErrInvalidFee
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.feeRecipient {
		return ErrNotFeeRecipient
	}

	zap.L().With(
		zap.String("from", l.listingFee.String()),
		zap.String("to", fee.String()),
	).Info("Listing fee updated")

	l.listingFee = new(big.Int).Set(fee)

	return nil
}

func (l *ledger) GetItem(itemId uint64) (entity.MarketItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[itemId]
	if !ok {
		return entity.MarketItem{}, ErrItemNotFound
	}

	return copyItem(*item), nil
}

func (l *ledger) ItemsSold() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.itemsSold
}

// Restore replays a journal into an empty ledger. Transfers are not
// re-executed; the transitions already committed.
func (l *ledger) Restore(transitions []entity.Transition) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, t := range transitions {
		switch t.Kind {
		case entity.ItemListed:
			item := copyItem(t.Item)
			l.items[item.ItemId] = &item
			if item.ItemId > l.nextItemId {
				l.nextItemId = item.ItemId
			}
		case entity.ItemSold:
			item, ok := l.items[t.Item.ItemId]
			if !ok {
				return ErrItemNotFound
			}
			item.Owner = t.Item.Owner
			item.Sold = true
			l.itemsSold++
		}
	}

	zap.L().With(
		zap.Int("transitions", len(transitions)),
		zap.Uint64("items", l.nextItemId),
		zap.Uint64("sold", l.itemsSold),
	).Info("Ledger restored from journal")

	return nil
}

func (l *ledger) append(kind entity.TransitionKind, item entity.MarketItem) error {
	if l.journal == nil {
		return nil
	}

	return l.journal.Append(kind, copyItem(item))
}

func (l *ledger) unwindCreate(itemId uint64) {
	delete(l.items, itemId)
	l.nextItemId--
}

func copyItem(item entity.MarketItem) entity.MarketItem {
	item.Price = new(big.Int).Set(item.Price)
	return item
}
