package bank

import (
	"errors"
	"math/big"
	"sync"

	"github.com/mintbay/marketledger/internal/entity"
	"go.uber.org/zap"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
)

// Bank tracks native-currency balances. The ledger uses it to move the
// payment attached to a call: listing fees to the fee recipient, sale
// proceeds to the seller.
type Bank interface {
	Deposit(account entity.Address, amount *big.Int) error
	Transfer(from, to entity.Address, amount *big.Int) error
	BalanceOf(account entity.Address) *big.Int
}

type bank struct {
	mu       sync.RWMutex
	balances map[entity.Address]*big.Int
}

func NewBank() Bank {
	return &bank{balances: map[entity.Address]*big.Int{}}
}

func (b *bank) Deposit(account entity.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.balances[account] = new(big.Int).Add(b.balance(account), amount)

	zap.L().With(
		zap.String("account", account.String()),
		zap.String("amount", amount.String()),
	).Debug("Bank: Deposit")

	return nil
}

func (b *bank) Transfer(from, to entity.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	balance := b.balance(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	b.balances[from] = new(big.Int).Sub(balance, amount)
	b.balances[to] = new(big.Int).Add(b.balance(to), amount)

	zap.L().With(
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("amount", amount.String()),
	).Debug("Bank: Transfer")

	return nil
}

func (b *bank) BalanceOf(account entity.Address) *big.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return new(big.Int).Set(b.balance(account))
}

func (b *bank) balance(account entity.Address) *big.Int {
	if balance, ok := b.balances[account]; ok {
		return balance
	}

	return big.NewInt(0)
}
