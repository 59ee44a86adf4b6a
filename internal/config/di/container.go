package di

import (
	"github.com/mintbay/marketledger/internal/api"
	"github.com/mintbay/marketledger/internal/bank"
	"github.com/mintbay/marketledger/internal/elastic_search"
	"github.com/mintbay/marketledger/internal/indexer"
	"github.com/mintbay/marketledger/internal/journal"
	"github.com/mintbay/marketledger/internal/ledger"
	"github.com/mintbay/marketledger/internal/metadata"
	"github.com/mintbay/marketledger/internal/repository"
	"github.com/mintbay/marketledger/internal/token"
	"github.com/sarulabs/di/v2"
)

type Container struct {
	ctn di.Container
}

func NewContainer() (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		return nil, err
	}

	return &Container{ctn: builder.Build()}, nil
}

func (c *Container) Delete() error {
	return c.ctn.Delete()
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.ctn.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetBank() bank.Bank {
	return c.ctn.Get("bank").(bank.Bank)
}

func (c *Container) GetTokenRegistry() token.Registry {
	return c.ctn.Get("token.registry").(token.Registry)
}

func (c *Container) GetDefaultToken() token.Token {
	return c.ctn.Get("token.default").(token.Token)
}

func (c *Container) GetJournal() *journal.Store {
	return c.ctn.Get("journal").(*journal.Store)
}

func (c *Container) GetLedger() ledger.Ledger {
	return c.ctn.Get("ledger").(ledger.Ledger)
}

func (c *Container) GetMetadata() metadata.Service {
	return c.ctn.Get("metadata").(metadata.Service)
}

func (c *Container) GetFeed() *api.Feed {
	return c.ctn.Get("feed").(*api.Feed)
}

func (c *Container) GetApiServer() api.Server {
	return c.ctn.Get("api.server").(api.Server)
}

func (c *Container) GetMarketIndexer() indexer.MarketIndexer {
	return c.ctn.Get("market.indexer").(indexer.MarketIndexer)
}

func (c *Container) GetActionRepo() repository.ActionRepository {
	return c.ctn.Get("action.repo").(repository.ActionRepository)
}
