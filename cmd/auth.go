package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/joescharf/eyelife/internal/credential"
	"github.com/joescharf/eyelife/internal/gateway"
	"github.com/joescharf/eyelife/internal/output"
)

var (
	authToken string
	authCheck bool
)

// authInput is the token source for login, replaceable in tests.
var authInput io.Reader = os.Stdin

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the backend session token",
	Long: `Store, inspect, or remove the token sent to the backend.

Tokens are issued by the backend's sign-in page; eyelife only stores them.
Running bare 'eyelife auth' is the same as 'eyelife auth status'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatusRun()
	},
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a session token",
	Long:  "Store a session token. Without --token, the token is read from stdin (hidden when stdin is a terminal).",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authLoginRun()
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authLogoutRun()
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		return authStatusRun()
	},
}

func init() {
	authLoginCmd.Flags().StringVar(&authToken, "token", "", "Session token")
	authStatusCmd.Flags().BoolVar(&authCheck, "check", false, "Verify the token against the backend")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func readToken() (string, error) {
	if authToken != "" {
		return strings.TrimSpace(authToken), nil
	}

	if f, ok := authInput.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(ui.Out, "Token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(ui.Out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(authInput).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func authLoginRun() error {
	token, err := readToken()
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("no token given")
	}

	if dryRun {
		ui.DryRunMsg("Would store a token in the %s credential store", viper.GetString("credential.backend"))
		return nil
	}

	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()
	if err := a.Credentials.Set(ctx, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}

	// A rejected token is cleared by the gateway on the 401.
	if _, err := a.Gateway.GetSettings(ctx); err != nil {
		if errors.Is(err, gateway.ErrSessionExpired) {
			return fmt.Errorf("the backend rejected the token")
		}
		ui.Warning("Token stored, but the backend could not be reached: %v", err)
		return nil
	}
	ui.Success("Signed in to %s", output.Cyan(a.Gateway.BaseURL()))
	return nil
}

func authLogoutRun() error {
	if dryRun {
		ui.DryRunMsg("Would remove the stored token")
		return nil
	}
	a, err := getEngine()
	if err != nil {
		return err
	}
	if err := a.Credentials.Clear(context.Background()); err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	ui.Success("Signed out")
	return nil
}

func authStatusRun() error {
	a, err := getEngine()
	if err != nil {
		return err
	}
	ctx := context.Background()

	fmt.Fprintf(ui.Out, "  Backend:    %s\n", a.Gateway.BaseURL())
	fmt.Fprintf(ui.Out, "  Storage:    %s\n", viper.GetString("credential.backend"))

	token, err := a.Credentials.Get(ctx)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		fmt.Fprintf(ui.Out, "  Token:      %s\n", output.Yellow("none"))
		return nil
	case err != nil:
		return fmt.Errorf("read token: %w", err)
	}
	fmt.Fprintf(ui.Out, "  Token:      %s\n", maskToken(token))

	if !authCheck {
		return nil
	}
	if _, err := a.Gateway.GetSettings(ctx); err != nil {
		if errors.Is(err, gateway.ErrSessionExpired) {
			fmt.Fprintf(ui.Out, "  Status:     %s\n", output.Red("rejected (token removed)"))
			return nil
		}
		fmt.Fprintf(ui.Out, "  Status:     %s\n", output.Yellow("unreachable: "+err.Error()))
		return nil
	}
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.Green("valid"))
	return nil
}

// maskToken shows only the last four characters.
func maskToken(t string) string {
	if len(t) <= 4 {
		return strings.Repeat("*", len(t))
	}
	return strings.Repeat("*", 8) + t[len(t)-4:]
}
