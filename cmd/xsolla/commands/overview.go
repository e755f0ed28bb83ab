package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/xsolla-sdk/internal/app"
)

// overviewCommand returns the 'overview' subcommand.
func overviewCommand() *cli.Command {
	return &cli.Command{
		Name:   "overview",
		Usage:  "Show devices, balances and the current cart",
		Flags:  []cli.Flag{jsonFlag()},
		Action: withApp(overviewAction),
	}
}

func overviewAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if err := requireStoreProject(application); err != nil {
		return err
	}

	overview, err := application.Overview(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(overview)
	}

	fmt.Println("Devices:")
	if err := printTable([]string{"ID", "TYPE", "DEVICE"}, func(row func(...any)) {
		for _, d := range overview.Devices {
			row(d.ID, d.Type, d.Device)
		}
	}); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Balance:")
	if err := printBalance(overview.Balance); err != nil {
		return err
	}

	fmt.Println()
	return printCart(overview.Cart)
}
