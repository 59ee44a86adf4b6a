package token

import (
	"errors"
	"sync"

	"github.com/mintbay/marketledger/internal/entity"
)

var ErrUnknownContract = errors.New("unknown asset contract")

// Registry resolves an asset-contract address to its capability interface.
// The ledger is constructed against the registry so tests can substitute a
// fake collection.
type Registry interface {
	Register(address entity.Address, contract Contract)
	Resolve(address entity.Address) (Contract, error)
}

type registry struct {
	mu        sync.RWMutex
	contracts map[entity.Address]Contract
}

func NewRegistry() Registry {
	return &registry{contracts: map[entity.Address]Contract{}}
}

func (r *registry) Register(address entity.Address, contract Contract) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.contracts[address] = contract
}

func (r *registry) Resolve(address entity.Address) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	contract, ok := r.contracts[address]
	if !ok {
		return nil, ErrUnknownContract
	}

	return contract, nil
}
