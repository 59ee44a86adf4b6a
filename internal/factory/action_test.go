package factory_test

import (
	"math/big"
	"testing"

	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/factory"
	"github.com/stretchr/testify/assert"
)

var item = entity.MarketItem{
	ItemId:        3,
	AssetContract: entity.NewAddress("0xc011ec7"),
	TokenId:       7,
	Seller:        entity.NewAddress("0x5e11e7"),
	Owner:         entity.NewAddress("0xb111e7"),
	Price:         big.NewInt(100),
	Sold:          true,
}

func TestCreateListingAction(t *testing.T) {
	action := factory.CreateListingAction(item, "25")

	assert.Equal(t, entity.ListingAction, action.Action)
	assert.Equal(t, "100", action.Price)
	assert.Equal(t, "25", action.Fee)
	assert.Equal(t, entity.Address(""), action.Buyer)
	assert.Equal(t, "action-listing-3", action.Slug())
}

func TestCreateSaleAction(t *testing.T) {
	action := factory.CreateSaleAction(item)

	assert.Equal(t, entity.SaleAction, action.Action)
	assert.Equal(t, item.Owner, action.Buyer)
	assert.Equal(t, "action-sale-3", action.Slug())
}
