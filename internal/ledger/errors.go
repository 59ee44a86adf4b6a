package ledger

import "errors"

var (
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidFee      = errors.New("invalid listing fee")
	ErrInsufficientFee = errors.New("payment must equal the listing fee")
	ErrNotAssetOwner   = errors.New("caller does not hold the asset")
	ErrItemNotFound    = errors.New("market item not found")
	ErrAlreadySold     = errors.New("market item already sold")
	ErrWrongPayment    = errors.New("payment must equal the asking price")
	ErrNotFeeRecipient = errors.New("only the fee recipient may update the listing fee")
)
