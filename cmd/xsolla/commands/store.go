package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/xsolla-sdk/internal/app"
	"github.com/florianilch/xsolla-sdk/internal/xsolla"
)

// inventoryCommand returns the 'inventory' subcommand.
func inventoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "inventory",
		Usage: "Inspect the user inventory",
		Commands: []*cli.Command{
			{
				Name:   "balance",
				Usage:  "Show virtual currency balances",
				Flags:  []cli.Flag{jsonFlag()},
				Action: withApp(inventoryBalanceAction),
			},
		},
	}
}

// cartCommand returns the 'cart' subcommand.
func cartCommand() *cli.Command {
	return &cli.Command{
		Name:  "cart",
		Usage: "Inspect carts",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a cart (the current cart if no ID is given)",
				ArgsUsage: "[cart id]",
				Flags:     []cli.Flag{jsonFlag()},
				Action:    withApp(cartShowAction),
			},
		},
	}
}

func requireStoreProject(application *app.App) error {
	if application.StoreProjectID() == "" {
		return errors.New("store.project_id is required (set XSOLLA_STORE__PROJECT_ID or the config file)")
	}
	return nil
}

func inventoryBalanceAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if err := requireStoreProject(application); err != nil {
		return err
	}

	balance, err := application.Client.VirtualCurrencyBalance(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(balance)
	}
	return printBalance(balance)
}

func cartShowAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if err := requireStoreProject(application); err != nil {
		return err
	}

	cart, err := application.Client.Cart(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(cart)
	}
	return printCart(cart)
}

func printBalance(balance xsolla.VirtualCurrencyBalances) error {
	return printTable([]string{"SKU", "NAME", "AMOUNT"}, func(row func(...any)) {
		for _, b := range balance.Items {
			row(b.SKU, b.Name, b.Amount)
		}
	})
}

func printCart(cart xsolla.Cart) error {
	fmt.Printf("Cart %s", cart.CartID)
	if cart.Price != nil {
		fmt.Printf(" (%s %s)", cart.Price.Amount, cart.Price.Currency)
	}
	fmt.Println()

	return printTable([]string{"SKU", "NAME", "QUANTITY", "PRICE"}, func(row func(...any)) {
		for _, item := range cart.Items {
			price := "-"
			switch {
			case item.IsFree:
				price = "free"
			case item.Price != nil:
				price = item.Price.Amount + " " + item.Price.Currency
			case len(item.VirtualPrices) > 0:
				price = item.VirtualPrices[0].Amount + " " + item.VirtualPrices[0].SKU
			}
			row(item.SKU, item.Name, item.Quantity, price)
		}
	})
}
