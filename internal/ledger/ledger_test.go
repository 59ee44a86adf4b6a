package ledger_test

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/mintbay/marketledger/internal/bank"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/event"
	"github.com/mintbay/marketledger/internal/ledger"
	"github.com/mintbay/marketledger/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	marketAddr   = entity.NewAddress("0x6d61726b6574")
	feeRecipient = entity.NewAddress("0xfee")
	collection   = entity.NewAddress("0xc011ec7")
	seller       = entity.NewAddress("0x5e11e7")
	buyer        = entity.NewAddress("0xb111e7")

	listingFee = big.NewInt(25)
	price      = big.NewInt(100)
)

type fixture struct {
	ledger ledger.Ledger
	token  token.Token
	bank   bank.Bank
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	reg := token.NewRegistry()
	tok := token.NewToken(collection, marketAddr)
	reg.Register(collection, tok)

	b := bank.NewBank()
	require.NoError(t, b.Deposit(seller, big.NewInt(1000)))
	require.NoError(t, b.Deposit(buyer, big.NewInt(1000)))

	return fixture{
		ledger: ledger.NewLedger(marketAddr, feeRecipient, listingFee, reg, b, nil),
		token:  tok,
		bank:   b,
	}
}

func (f fixture) mintAndList(t *testing.T, itemPrice *big.Int) uint64 {
	t.Helper()

	tokenId, err := f.token.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	itemId, err := f.ledger.CreateMarketItem(seller, collection, tokenId, itemPrice, listingFee)
	require.NoError(t, err)

	return itemId
}

func collect(items func(func(entity.MarketItem) bool)) []entity.MarketItem {
	out := make([]entity.MarketItem, 0)
	for item := range items {
		out = append(out, item)
	}
	return out
}

func TestLedger_CreateMarketItem(t *testing.T) {
	f := newFixture(t)

	itemId := f.mintAndList(t, price)

	item, err := f.ledger.GetItem(itemId)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), item.ItemId)
	assert.Equal(t, seller, item.Seller)
	assert.Equal(t, marketAddr, item.Owner)
	assert.Equal(t, price, item.Price)
	assert.False(t, item.Sold)

	owner, err := f.token.OwnerOf(item.TokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner, "ledger holds custody while listed")

	assert.Equal(t, listingFee, f.bank.BalanceOf(feeRecipient), "fee forwarded to recipient")
	assert.Equal(t, big.NewInt(975), f.bank.BalanceOf(seller))
}

func TestLedger_CreateMarketItem_InvalidPrice(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.token.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	_, err = f.ledger.CreateMarketItem(seller, collection, tokenId, big.NewInt(0), listingFee)
	assert.ErrorIs(t, err, ledger.ErrInvalidPrice)

	// nothing happened: no record, no fee, custody unchanged
	_, err = f.ledger.GetItem(1)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
	assert.Equal(t, big.NewInt(0), f.bank.BalanceOf(feeRecipient))

	owner, err := f.token.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)
}

func TestLedger_CreateMarketItem_InsufficientFee(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.token.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	for _, payment := range []*big.Int{big.NewInt(24), big.NewInt(26), nil} {
		_, err = f.ledger.CreateMarketItem(seller, collection, tokenId, price, payment)
		assert.ErrorIs(t, err, ledger.ErrInsufficientFee)
	}
}

func TestLedger_CreateMarketItem_NotAssetOwner(t *testing.T) {
	f := newFixture(t)
	tokenId, err := f.token.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	_, err = f.ledger.CreateMarketItem(buyer, collection, tokenId, price, listingFee)
	assert.ErrorIs(t, err, ledger.ErrNotAssetOwner)

	owner, err := f.token.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)
}

func TestLedger_CreateMarketItem_UnknownContract(t *testing.T) {
	f := newFixture(t)

	_, err := f.ledger.CreateMarketItem(seller, entity.NewAddress("0xdead"), 1, price, listingFee)
	assert.ErrorIs(t, err, token.ErrUnknownContract)
}

func TestLedger_CreateMarketItem_SequentialIds(t *testing.T) {
	f := newFixture(t)

	for n := uint64(1); n <= 5; n++ {
		itemId := f.mintAndList(t, price)
		assert.Equal(t, n, itemId)
	}
}

func TestLedger_CreateMarketSale(t *testing.T) {
	f := newFixture(t)
	itemId := f.mintAndList(t, price)

	require.NoError(t, f.ledger.CreateMarketSale(buyer, collection, itemId, price))

	item, err := f.ledger.GetItem(itemId)
	require.NoError(t, err)
	assert.True(t, item.Sold)
	assert.Equal(t, buyer, item.Owner)

	owner, err := f.token.OwnerOf(item.TokenId)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner, "custody moved to buyer")

	assert.Equal(t, big.NewInt(1075), f.bank.BalanceOf(seller), "proceeds forwarded to seller")
	assert.Equal(t, big.NewInt(900), f.bank.BalanceOf(buyer))
	assert.Equal(t, uint64(1), f.ledger.ItemsSold())
}

func TestLedger_CreateMarketSale_AlreadySold(t *testing.T) {
	f := newFixture(t)
	itemId := f.mintAndList(t, price)

	require.NoError(t, f.ledger.CreateMarketSale(buyer, collection, itemId, price))

	err := f.ledger.CreateMarketSale(seller, collection, itemId, price)
	assert.ErrorIs(t, err, ledger.ErrAlreadySold)

	// second attempt changed nothing
	item, _ := f.ledger.GetItem(itemId)
	assert.Equal(t, buyer, item.Owner)
	assert.Equal(t, uint64(1), f.ledger.ItemsSold())
	assert.Equal(t, big.NewInt(900), f.bank.BalanceOf(buyer))
}

func TestLedger_CreateMarketSale_WrongPayment(t *testing.T) {
	f := newFixture(t)
	itemId := f.mintAndList(t, price)

	for _, payment := range []*big.Int{big.NewInt(99), big.NewInt(101), nil} {
		err := f.ledger.CreateMarketSale(buyer, collection, itemId, payment)
		assert.ErrorIs(t, err, ledger.ErrWrongPayment)
	}

	item, err := f.ledger.GetItem(itemId)
	require.NoError(t, err)
	assert.False(t, item.Sold)

	owner, err := f.token.OwnerOf(item.TokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)
	assert.Equal(t, big.NewInt(1000), f.bank.BalanceOf(buyer))
}

func TestLedger_CreateMarketSale_ItemNotFound(t *testing.T) {
	f := newFixture(t)
	itemId := f.mintAndList(t, price)

	err := f.ledger.CreateMarketSale(buyer, collection, 99, price)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)

	// right id, wrong collection
	err = f.ledger.CreateMarketSale(buyer, entity.NewAddress("0xdead"), itemId, price)
	assert.ErrorIs(t, err, ledger.ErrItemNotFound)
}

func TestLedger_CreateMarketSale_InsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(t)
	itemId := f.mintAndList(t, big.NewInt(5000))

	err := f.ledger.CreateMarketSale(buyer, collection, itemId, big.NewInt(5000))
	assert.ErrorIs(t, err, bank.ErrInsufficientFunds)

	item, _ := f.ledger.GetItem(itemId)
	assert.False(t, item.Sold)
	assert.Equal(t, marketAddr, item.Owner)
	assert.Equal(t, uint64(0), f.ledger.ItemsSold())

	owner, err := f.token.OwnerOf(item.TokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)
}

func TestLedger_FetchMarketItems(t *testing.T) {
	f := newFixture(t)

	first := f.mintAndList(t, price)
	second := f.mintAndList(t, price)
	third := f.mintAndList(t, price)

	require.NoError(t, f.ledger.CreateMarketSale(buyer, collection, second, price))

	items := collect(f.ledger.FetchMarketItems())
	require.Len(t, items, 2)
	assert.Equal(t, first, items[0].ItemId)
	assert.Equal(t, third, items[1].ItemId)
	for _, item := range items {
		assert.False(t, item.Sold)
		assert.Equal(t, marketAddr, item.Owner)
	}
}

func TestLedger_FetchMarketItems_Restartable(t *testing.T) {
	f := newFixture(t)
	f.mintAndList(t, price)
	f.mintAndList(t, price)

	seq := f.ledger.FetchMarketItems()

	// partial first pass, full second pass over the same snapshot
	for range seq {
		break
	}
	assert.Len(t, collect(seq), 2)
}

func TestLedger_ListingFee(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, listingFee, f.ledger.GetListingPrice())

	err := f.ledger.UpdateListingFee(seller, big.NewInt(50))
	assert.ErrorIs(t, err, ledger.ErrNotFeeRecipient)
	assert.Equal(t, listingFee, f.ledger.GetListingPrice())

	require.NoError(t, f.ledger.UpdateListingFee(feeRecipient, big.NewInt(50)))
	assert.Equal(t, big.NewInt(50), f.ledger.GetListingPrice())

	err = f.ledger.UpdateListingFee(feeRecipient, big.NewInt(-1))
	assert.ErrorIs(t, err, ledger.ErrInvalidFee)
}

func TestLedger_ListingEventCarriesCollectedFee(t *testing.T) {
	f := newFixture(t)

	listings := make(chan entity.MarketListing, 16)
	event.AddEventListener(event.MarketItemCreatedEvent, func(msg interface{}) {
		if listing, ok := msg.(entity.MarketListing); ok {
			listings <- listing
		}
	})

	require.NoError(t, f.ledger.UpdateListingFee(feeRecipient, big.NewInt(50)))

	tokenId, err := f.token.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)
	itemId, err := f.ledger.CreateMarketItem(seller, collection, tokenId, price, big.NewInt(50))
	require.NoError(t, err)

	select {
	case listing := <-listings:
		assert.Equal(t, itemId, listing.Item.ItemId)
		assert.Equal(t, "50", listing.Fee, "event carries the fee collected, not the boot-time fee")
	case <-time.After(5 * time.Second):
		require.Fail(t, "listing event never delivered")
	}
}

// Mirrors the walkthrough the web flow performs: mint two tokens, list
// both, sell the first, then query what remains.
func TestLedger_EndToEnd(t *testing.T) {
	f := newFixture(t)

	firstToken, err := f.token.Mint(seller, "https://www.mytokenurilocation.com")
	require.NoError(t, err)
	secondToken, err := f.token.Mint(seller, "https://myothertokenurilocation.com")
	require.NoError(t, err)

	firstItem, err := f.ledger.CreateMarketItem(seller, collection, firstToken, price, listingFee)
	require.NoError(t, err)
	secondItem, err := f.ledger.CreateMarketItem(seller, collection, secondToken, price, listingFee)
	require.NoError(t, err)

	require.NoError(t, f.ledger.CreateMarketSale(buyer, collection, firstItem, price))

	items := collect(f.ledger.FetchMarketItems())
	require.Len(t, items, 1)
	assert.Equal(t, secondItem, items[0].ItemId)
	assert.Equal(t, marketAddr, items[0].Owner)
	assert.False(t, items[0].Sold)

	uri, err := f.token.TokenURI(items[0].TokenId)
	require.NoError(t, err)
	assert.Equal(t, "https://myothertokenurilocation.com", uri)

	owner, err := f.token.OwnerOf(firstToken)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)

	assert.Equal(t, uint64(1), f.ledger.ItemsSold())
}

// failingContract wraps the reference token and fails TransferFrom after a
// set number of calls, to exercise the unwind paths.
type failingContract struct {
	token.Contract
	calls    int
	failFrom int
}

var errTransferBroken = errors.New("transfer broken")

func (c *failingContract) TransferFrom(operator, from, to entity.Address, tokenId uint64) error {
	c.calls++
	if c.calls >= c.failFrom {
		return errTransferBroken
	}
	return c.Contract.TransferFrom(operator, from, to, tokenId)
}

func TestLedger_CreateMarketItem_TransferFailureUnwinds(t *testing.T) {
	reg := token.NewRegistry()
	tok := token.NewToken(collection, marketAddr)
	reg.Register(collection, &failingContract{Contract: tok, failFrom: 1})

	b := bank.NewBank()
	require.NoError(t, b.Deposit(seller, big.NewInt(1000)))

	l := ledger.NewLedger(marketAddr, feeRecipient, listingFee, reg, b, nil)

	tokenId, err := tok.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	_, err = l.CreateMarketItem(seller, collection, tokenId, price, listingFee)
	assert.ErrorIs(t, err, errTransferBroken)

	// no record, no fee, and the next listing still gets itemId 1
	assert.Equal(t, big.NewInt(0), b.BalanceOf(feeRecipient))
	assert.Equal(t, big.NewInt(1000), b.BalanceOf(seller))

	reg.Register(collection, tok)
	itemId, err := l.CreateMarketItem(seller, collection, tokenId, price, listingFee)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), itemId)
}

func TestLedger_CreateMarketSale_TransferFailureUnwinds(t *testing.T) {
	reg := token.NewRegistry()
	tok := token.NewToken(collection, marketAddr)
	reg.Register(collection, tok)

	b := bank.NewBank()
	require.NoError(t, b.Deposit(seller, big.NewInt(1000)))
	require.NoError(t, b.Deposit(buyer, big.NewInt(1000)))

	l := ledger.NewLedger(marketAddr, feeRecipient, listingFee, reg, b, nil)

	tokenId, err := tok.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)
	itemId, err := l.CreateMarketItem(seller, collection, tokenId, price, listingFee)
	require.NoError(t, err)

	// custody transfer fails on the sale
	reg.Register(collection, &failingContract{Contract: tok, failFrom: 1})

	err = l.CreateMarketSale(buyer, collection, itemId, price)
	assert.ErrorIs(t, err, errTransferBroken)

	item, err := l.GetItem(itemId)
	require.NoError(t, err)
	assert.False(t, item.Sold)
	assert.Equal(t, marketAddr, item.Owner)
	assert.Equal(t, uint64(0), l.ItemsSold())

	// payment bounced back to the buyer
	assert.Equal(t, big.NewInt(1000), b.BalanceOf(buyer))

	owner, err := tok.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, marketAddr, owner)
}

type failingJournal struct {
	err error
}

func (j failingJournal) Append(entity.TransitionKind, entity.MarketItem) error {
	return j.err
}

func TestLedger_JournalFailureUnwinds(t *testing.T) {
	reg := token.NewRegistry()
	tok := token.NewToken(collection, marketAddr)
	reg.Register(collection, tok)

	b := bank.NewBank()
	require.NoError(t, b.Deposit(seller, big.NewInt(1000)))

	errJournal := errors.New("journal closed")
	l := ledger.NewLedger(marketAddr, feeRecipient, listingFee, reg, b, failingJournal{errJournal})

	tokenId, err := tok.Mint(seller, "https://tokens.test/uri")
	require.NoError(t, err)

	_, err = l.CreateMarketItem(seller, collection, tokenId, price, listingFee)
	assert.ErrorIs(t, err, errJournal)

	owner, err := tok.OwnerOf(tokenId)
	require.NoError(t, err)
	assert.Equal(t, seller, owner)
	assert.Equal(t, big.NewInt(0), b.BalanceOf(feeRecipient))
	assert.Empty(t, collect(l.FetchMarketItems()))
}

func TestLedger_Restore(t *testing.T) {
	f := newFixture(t)
	first := f.mintAndList(t, price)
	second := f.mintAndList(t, price)
	require.NoError(t, f.ledger.CreateMarketSale(buyer, collection, first, price))

	firstItem, err := f.ledger.GetItem(first)
	require.NoError(t, err)
	secondItem, err := f.ledger.GetItem(second)
	require.NoError(t, err)

	transitions := []entity.Transition{
		{Seq: 1, Kind: entity.ItemListed, Item: entity.MarketItem{ItemId: first, AssetContract: collection, TokenId: firstItem.TokenId, Seller: seller, Owner: marketAddr, Price: price, Sold: false}},
		{Seq: 2, Kind: entity.ItemListed, Item: secondItem},
		{Seq: 3, Kind: entity.ItemSold, Item: firstItem},
	}

	restored := ledger.NewLedger(marketAddr, feeRecipient, listingFee, token.NewRegistry(), bank.NewBank(), nil)
	require.NoError(t, restored.Restore(transitions))

	assert.Equal(t, uint64(1), restored.ItemsSold())

	items := collect(restored.FetchMarketItems())
	require.Len(t, items, 1)
	assert.Equal(t, second, items[0].ItemId)

	item, err := restored.GetItem(first)
	require.NoError(t, err)
	assert.True(t, item.Sold)
	assert.Equal(t, buyer, item.Owner)
}
