package token

import (
	"errors"
	"sync"

	"github.com/mintbay/marketledger/internal/entity"
	"go.uber.org/zap"
)

var (
	ErrNotAuthorized = errors.New("not authorized")
	ErrTokenNotFound = errors.New("token not found")
)

// Contract is the narrow capability the ledger needs from an asset
// collection. The operator is the identity performing the transfer; it must
// be the current custodian or an approved operator.
type Contract interface {
	TransferFrom(operator, from, to entity.Address, tokenId uint64) error
	OwnerOf(tokenId uint64) (entity.Address, error)
	TokenURI(tokenId uint64) (string, error)
}

// Token is the in-process reference collection. Minting assigns dense token
// ids starting at 1 and records the token uri. The collection is created
// with the marketplace address approved as operator for every holder,
// mirroring the approval the web flow sets up at deploy time.
type Token interface {
	Contract

	Address() entity.Address
	Mint(caller entity.Address, uri string) (uint64, error)
}

type token struct {
	mu       sync.RWMutex
	address  entity.Address
	operator entity.Address
	nextId   uint64
	owners   map[uint64]entity.Address
	uris     map[uint64]string
}

func NewToken(address, operator entity.Address) Token {
	return &token{
		address:  address,
		operator: operator,
		owners:   map[uint64]entity.Address{},
		uris:     map[uint64]string{},
	}
}

func (t *token) Address() entity.Address {
	return t.address
}

func (t *token) Mint(caller entity.Address, uri string) (uint64, error) {
	if caller == entity.ZeroAddress || caller == "" {
		return 0, ErrNotAuthorized
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextId++
	t.owners[t.nextId] = caller
	t.uris[t.nextId] = uri

	zap.L().With(
		zap.String("contract", t.address.String()),
		zap.Uint64("tokenId", t.nextId),
		zap.String("owner", caller.String()),
	).Info("Token minted")

	return t.nextId, nil
}

func (t *token) TransferFrom(operator, from, to entity.Address, tokenId uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	owner, ok := t.owners[tokenId]
	if !ok {
		return ErrTokenNotFound
	}

	if owner != from {
		return ErrNotAuthorized
	}

	if operator != owner && operator != t.operator {
		return ErrNotAuthorized
	}

	t.owners[tokenId] = to

	return nil
}

func (t *token) OwnerOf(tokenId uint64) (entity.Address, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	owner, ok := t.owners[tokenId]
	if !ok {
		return entity.ZeroAddress, ErrTokenNotFound
	}

	return owner, nil
}

func (t *token) TokenURI(tokenId uint64) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	uri, ok := t.uris[tokenId]
	if !ok {
		return "", ErrTokenNotFound
	}

	return uri, nil
}
