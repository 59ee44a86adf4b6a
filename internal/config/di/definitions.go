package di

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mintbay/marketledger/internal/api"
	"github.com/mintbay/marketledger/internal/bank"
	"github.com/mintbay/marketledger/internal/config"
	"github.com/mintbay/marketledger/internal/elastic_search"
	"github.com/mintbay/marketledger/internal/indexer"
	"github.com/mintbay/marketledger/internal/journal"
	"github.com/mintbay/marketledger/internal/ledger"
	"github.com/mintbay/marketledger/internal/metadata"
	"github.com/mintbay/marketledger/internal/repository"
	"github.com/mintbay/marketledger/internal/token"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "cache",
		Build: func(ctn di.Container) (interface{}, error) {
			return cache.New(5*time.Minute, 10*time.Minute), nil
		},
	},
	{
		Name: "bank",
		Build: func(ctn di.Container) (interface{}, error) {
			return bank.NewBank(), nil
		},
	},
	{
		Name: "token.registry",
		Build: func(ctn di.Container) (interface{}, error) {
			registry := token.NewRegistry()
			registry.Register(config.Get().TokenAddress, ctn.Get("token.default").(token.Token))

			return registry, nil
		},
	},
	{
		Name: "token.default",
		Build: func(ctn di.Container) (interface{}, error) {
			return token.NewToken(config.Get().TokenAddress, config.Get().LedgerAddress), nil
		},
	},
	{
		Name: "journal",
		Build: func(ctn di.Container) (interface{}, error) {
			return journal.NewStore(config.Get().JournalPath)
		},
		Close: func(obj interface{}) error {
			return obj.(*journal.Store).Close()
		},
	},
	{
		Name: "ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			cfg := config.Get()

			return ledger.NewLedger(
				cfg.LedgerAddress,
				cfg.FeeRecipient,
				cfg.ListingFeeAmount(),
				ctn.Get("token.registry").(token.Registry),
				ctn.Get("bank").(bank.Bank),
				ctn.Get("journal").(*journal.Store),
			), nil
		},
	},
	{
		Name: "metadata",
		Build: func(ctn di.Container) (interface{}, error) {
			client := retryablehttp.NewClient()
			client.RetryMax = config.Get().MetadataRetries
			client.HTTPClient.Timeout = time.Duration(config.Get().MetadataTimeout) * time.Second
			client.Logger = nil

			return metadata.NewMetadataService(client, ctn.Get("cache").(*cache.Cache)), nil
		},
	},
	{
		Name: "feed",
		Build: func(ctn di.Container) (interface{}, error) {
			return api.NewFeed(), nil
		},
	},
	{
		Name: "api.server",
		Build: func(ctn di.Container) (interface{}, error) {
			// the action read model only exists when indexing is enabled
			var actions repository.ActionRepository
			if config.Get().IndexActions {
				actions = ctn.Get("action.repo").(repository.ActionRepository)
			}

			return api.NewServer(
				ctn.Get("ledger").(ledger.Ledger),
				ctn.Get("token.registry").(token.Registry),
				ctn.Get("metadata").(metadata.Service),
				ctn.Get("cache").(*cache.Cache),
				ctn.Get("feed").(*api.Feed),
				actions,
			), nil
		},
	},
	{
		Name: "market.indexer",
		Build: func(ctn di.Container) (interface{}, error) {
			return indexer.NewMarketIndexer(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "action.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
}
