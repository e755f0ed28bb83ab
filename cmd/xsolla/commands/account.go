package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/xsolla-sdk/internal/app"
	"github.com/florianilch/xsolla-sdk/internal/xsolla"
)

// accountCommand returns the 'account' subcommand for user account APIs.
func accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage the signed-in user account",
		Commands: []*cli.Command{
			{
				Name:   "devices",
				Usage:  "List linked devices",
				Flags:  []cli.Flag{jsonFlag()},
				Action: withApp(accountDevicesAction),
			},
			{
				Name:      "link-device",
				Usage:     "Link a device to the account",
				ArgsUsage: "<android|ios> <device name> <device id>",
				Action:    withApp(accountLinkDeviceAction),
			},
			{
				Name:      "unlink-device",
				Usage:     "Unlink a device by its account device ID",
				ArgsUsage: "<id>",
				Action:    withApp(accountUnlinkDeviceAction),
			},
			{
				Name:      "add-email",
				Usage:     "Add username/email and password authentication",
				ArgsUsage: "<username> <email>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "promo-emails",
						Usage: "agree to receive newsletters",
					},
				},
				Action: withApp(accountAddEmailAction),
			},
		},
	}
}

func accountDevicesAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	devices, err := application.Client.UserDevices(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(devices)
	}

	return printTable([]string{"ID", "TYPE", "DEVICE", "LAST USED"}, func(row func(...any)) {
		for _, d := range devices {
			row(d.ID, d.Type, d.Device, d.LastUsedAt)
		}
	})
}

func accountLinkDeviceAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if cmd.Args().Len() != 3 {
		return errors.New("expected <android|ios> <device name> <device id>")
	}
	deviceType, err := xsolla.ParseDeviceType(cmd.Args().Get(0))
	if err != nil {
		return err
	}

	if err := application.Client.LinkDevice(ctx, deviceType, cmd.Args().Get(1), cmd.Args().Get(2)); err != nil {
		return err
	}
	fmt.Println("Device linked")
	return nil
}

func accountUnlinkDeviceAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	id, err := strconv.Atoi(cmd.Args().First())
	if err != nil {
		return fmt.Errorf("invalid device ID %q: %w", cmd.Args().First(), err)
	}

	if err := application.Client.UnlinkDevice(ctx, id); err != nil {
		return err
	}
	fmt.Println("Device unlinked")
	return nil
}

func accountAddEmailAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	if cmd.Args().Len() != 2 {
		return errors.New("expected <username> <email>")
	}

	password, err := readSecureInput(ctx, "New password: ")
	if err != nil {
		return err
	}

	req := xsolla.AddUsernameEmailRequest{
		Username: cmd.Args().Get(0),
		Email:    cmd.Args().Get(1),
		Password: password,
	}
	if cmd.IsSet("promo-emails") {
		agreement := 0
		if cmd.Bool("promo-emails") {
			agreement = 1
		}
		req.PromoEmailAgreement = &agreement
	}

	confirm, err := application.Client.AddUsernameEmailAuth(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println("Username and email added")
	if confirm {
		fmt.Println("Check your inbox to confirm the email address")
	}
	return nil
}
