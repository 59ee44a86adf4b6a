package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/mintbay/marketledger/internal/config"
	"github.com/mintbay/marketledger/internal/config/di"
	"github.com/mintbay/marketledger/internal/entity"
	"github.com/mintbay/marketledger/internal/ledger"
	"github.com/mintbay/marketledger/internal/repository"
	"github.com/mintbay/marketledger/internal/token"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	container  *di.Container
	marketRepo repository.ActionRepository
)

func main() {
	config.Init("cli")

	container, _ = di.NewContainer()

	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name:   "demo",
				Usage:  "Run the marketplace walkthrough: mint two tokens, list both, sell the first",
				Action: runDemo,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "price", Value: "100", Usage: "asking price for each listing"},
				},
			},
			{
				Name:   "items",
				Usage:  "Print the unsold market items restored from the journal",
				Action: printItems,
			},
			{
				Name:   "listing-price",
				Usage:  "Print the current listing fee",
				Action: printListingPrice,
			},
			{
				Name:   "history",
				Usage:  "Print recent sales from the action index",
				Action: printHistory,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 20, Usage: "page size"},
					&cli.IntFlag{Name: "page", Value: 1, Usage: "page number"},
				},
			},
			{
				Name:      "metadata",
				Usage:     "Fetch and print the metadata document behind a token uri",
				ArgsUsage: "<uri>",
				Action:    printMetadata,
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start CLI")
	}
}

func runDemo(c *cli.Context) error {
	price, ok := new(big.Int).SetString(c.String("price"), 10)
	if !ok {
		zap.S().Errorf("Invalid price: %s", c.String("price"))
		return nil
	}

	l := container.GetLedger()
	tok := container.GetDefaultToken()
	b := container.GetBank()

	seller := entity.NewAddress("0x5e11e7")
	buyer := entity.NewAddress("0xb111e7")

	fee := l.GetListingPrice()
	funds := new(big.Int).Add(price, new(big.Int).Mul(fee, big.NewInt(10)))
	if err := b.Deposit(seller, funds); err != nil {
		return err
	}
	if err := b.Deposit(buyer, funds); err != nil {
		return err
	}

	if err := listToken(l, tok, seller, "https://www.mytokenurilocation.com", price, fee); err != nil {
		return err
	}
	if err := listToken(l, tok, seller, "https://myothertokenurilocation.com", price, fee); err != nil {
		return err
	}

	if err := l.CreateMarketSale(buyer, tok.Address(), 1, price); err != nil {
		zap.L().With(zap.Error(err)).Error("Sale failed")
		return err
	}

	zap.S().Infof("Sold item 1 to %s for %s", buyer, price)

	return printItems(c)
}

func listToken(l ledger.Ledger, tok token.Token, seller entity.Address, uri string, price, fee *big.Int) error {
	_, err := mintAndList(l, tok, seller, uri, price, fee)
	return err
}

func mintAndList(l ledger.Ledger, tok token.Token, seller entity.Address, uri string, price, fee *big.Int) (uint64, error) {
	tokenId, err := tok.Mint(seller, uri)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Mint failed")
		return 0, err
	}

	itemId, err := l.CreateMarketItem(seller, tok.Address(), tokenId, price, fee)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Listing failed")
		return 0, err
	}

	zap.S().Infof("Listed token %d as item %d for %s", tokenId, itemId, price)

	return itemId, nil
}

func printItems(c *cli.Context) error {
	l := container.GetLedger()
	registry := container.GetTokenRegistry()

	count := 0
	for item := range l.FetchMarketItems() {
		tokenUri := ""
		if contract, err := registry.Resolve(item.AssetContract); err == nil {
			tokenUri, _ = contract.TokenURI(item.TokenId)
		}

		fmt.Printf("item %d: token %d, price %s, seller %s, owner %s, uri %s\n",
			item.ItemId, item.TokenId, item.Price, item.Seller, item.Owner, tokenUri)
		count++
	}

	zap.S().Infof("%d items for sale, %d sold", count, l.ItemsSold())

	return nil
}

func printListingPrice(c *cli.Context) error {
	fmt.Println(container.GetLedger().GetListingPrice().String())
	return nil
}

func printMetadata(c *cli.Context) error {
	uri := c.Args().First()
	if uri == "" {
		zap.L().Error("No uri provided")
		return nil
	}

	md, err := container.GetMetadata().GetTokenMetadata(uri)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("uri", uri)).Error("Failed to fetch metadata")
		return err
	}

	for key, value := range md {
		fmt.Printf("%s: %v\n", key, value)
	}

	return nil
}

func printHistory(c *cli.Context) error {
	marketRepo = container.GetActionRepo()

	sales, total, err := marketRepo.GetSales(c.Int("size"), c.Int("page"))
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to fetch sales")
		return err
	}

	for _, sale := range sales {
		fmt.Printf("item %d: token %d sold to %s for %s at %s\n",
			sale.ItemId, sale.TokenId, sale.Buyer, sale.Price, sale.At.Format("2006-01-02 15:04:05"))
	}

	zap.S().Infof("%d sales in total", total)

	return nil
}
