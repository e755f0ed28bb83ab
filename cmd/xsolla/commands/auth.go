package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/term"

	"github.com/florianilch/xsolla-sdk/internal/app"
	"github.com/florianilch/xsolla-sdk/internal/session"
)

// authCommand returns the 'auth' subcommand for managing the Xsolla session.
func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the Xsolla Login session",
		Commands: []*cli.Command{
			authLoginCommand(),
			authLogoutCommand(),
			authStatusCommand(),
		},
	}
}

// authLoginCommand returns the 'auth login' subcommand.
func authLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in to Xsolla Login and save the refresh token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "username",
				Usage: "sign in with username and password instead of the browser flow",
			},
		},
		Action: withApp(authLoginAction),
	}
}

// authLogoutCommand returns the 'auth logout' subcommand.
func authLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out and clear the saved refresh token",
		Action: authLogoutAction,
	}
}

// authStatusCommand returns the 'auth status' subcommand.
func authStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Restore the session from the saved refresh token and report it",
		Action: withApp(authStatusAction),
	}
}

// authLoginAction signs in with a password or the OAuth2 authorization code flow.
func authLoginAction(ctx context.Context, cmd *cli.Command, application *app.App) error {
	var (
		tok session.Token
		err error
	)
	if username := cmd.String("username"); username != "" {
		tok, err = runPasswordSignIn(ctx, application, username)
	} else {
		tok, err = runOAuth(ctx, application)
	}
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := application.SignIn(ctx, tok); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Login Successful ===")
	fmt.Println("Refresh token saved to configured storage")

	return nil
}

// authLogoutAction clears the saved refresh token.
func authLogoutAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Environ)
	if err != nil {
		return err
	}

	if cfg.Auth.Storage == app.TokenStorageTypeEnv {
		return errors.New("cannot logout with env storage (read-only). Configure file or keyring storage")
	}

	store, err := cfg.Auth.NewTokenStore()
	if err != nil {
		return fmt.Errorf("failed to create token store: %w", err)
	}

	// Empty write clears
	if err := store.Write(ctx, ""); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Logout Successful ===")
	fmt.Println("Credentials cleared from configured storage")

	return nil
}

func authStatusAction(ctx context.Context, _ *cli.Command, application *app.App) error {
	if err := application.Restore(ctx); err != nil {
		fmt.Println("Signed out:", err)
		return nil
	}

	health := application.Health()
	fmt.Println("Signed in")
	if exp := health.Expiry(); !exp.IsZero() {
		fmt.Printf("Access token expires %s (in %s)\n",
			exp.Format(time.RFC3339), time.Until(exp).Round(time.Second))
	}
	return nil
}

// readSecureInput reads user input with hidden display and context cancellation support.
// Goroutine+select pattern required because term.ReadPassword has no native context support.
func readSecureInput(ctx context.Context, prompt string) (string, error) {
	fmt.Print(prompt)
	defer fmt.Println()

	type result struct {
		value string
		err   error
	}
	resultCh := make(chan result, 1)

	go func() {
		inputBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		resultCh <- result{value: string(inputBytes), err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-resultCh:
		if res.err != nil {
			return "", fmt.Errorf("failed to read input: %w", res.err)
		}
		return res.value, nil
	}
}

func runPasswordSignIn(ctx context.Context, application *app.App, username string) (session.Token, error) {
	password, err := readSecureInput(ctx, "Password: ")
	if err != nil {
		return session.Token{}, err
	}
	return application.Authorizer().SignIn(ctx, username, password)
}

// runOAuth performs the authorization code flow with PKCE.
func runOAuth(ctx context.Context, application *app.App) (session.Token, error) {
	verifier := oauth2.GenerateVerifier()
	authURL := application.Authorizer().AuthCodeURL(uuid.NewString(), verifier)

	fmt.Println("=== Xsolla Login ===")
	fmt.Println()
	fmt.Printf("1. Visit this URL in your browser:\n   %s\n\n", authURL)
	fmt.Println("2. Sign in and authorize the application")
	fmt.Println("3. Paste the code from the redirect URL")

	code, err := readSecureInput(ctx, "\nEnter authorization code: ")
	if err != nil {
		return session.Token{}, err
	}

	if code == "" {
		return session.Token{}, errors.New("authorization code cannot be empty")
	}

	return application.Authorizer().Exchange(ctx, code, verifier)
}
