package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authKey string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage NexusMods authentication",
	Long: `Manage the NexusMods API key used to look up and download collection files.

Use 'lmm auth login' to store a key.
Use 'lmm auth logout' to remove it.
Use 'lmm auth status' to check who you are signed in as.

A key in LMM_NEXUS_API_KEY (or a .env file in the config directory)
takes precedence over the stored one.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a NexusMods API key",
	Long: `Validate a NexusMods API key and store it.

Without --key the key is read from standard input, hidden when typed at a
terminal.

To get a key:
  1. Visit https://www.nexusmods.com/users/myaccount?tab=api
  2. Click "Request an API Key" if you don't have one
  3. Copy your Personal API Key

Examples:
  lmm auth login
  lmm auth login --key abc123
  echo abc123 | lmm auth login`,
	Args: cobra.NoArgs,
	RunE: runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored NexusMods API key",
	Args:  cobra.NoArgs,
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show NexusMods authentication status",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	authLoginCmd.Flags().StringVar(&authKey, "key", "", "API key (read from stdin when omitted)")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	key := authKey
	if key == "" {
		var err error
		if key, err = readAPIKey(cmd); err != nil {
			return err
		}
	}

	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	user, err := service.Login(cmd.Context(), key)
	if err != nil {
		return err
	}

	premium := ""
	if user.IsPremium {
		premium = " (premium)"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Logged in as %s%s\n", colorGreen("✓"), user.Name, premium)
	return nil
}

// readAPIKey prompts for a key on stdin. Terminal input is not echoed.
func readAPIKey(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "NexusMods API key: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		keyBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading API key: %w", err)
		}
		return strings.TrimSpace(string(keyBytes)), nil
	}

	// Piped input
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	if err := service.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("removing API key: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out of NexusMods.")
	if service.Config().NexusAPIKey != "" {
		fmt.Fprintln(cmd.OutOrStdout(), colorYellow("Note: LMM_NEXUS_API_KEY is still set and will be used."))
	}
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	service, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer service.Close()

	user, err := service.UserInfo(cmd.Context())
	if err != nil {
		return fmt.Errorf("checking API key: %w", err)
	}

	out := cmd.OutOrStdout()
	if user == nil {
		fmt.Fprintf(out, "NexusMods: %s\n", colorRed("not logged in"))
		fmt.Fprintln(out, "\nUse 'lmm auth login' to authenticate.")
		return nil
	}
	fmt.Fprintf(out, "NexusMods: %s as %s (user %d)\n", colorGreen("logged in"), user.Name, user.UserID)
	if user.IsPremium {
		fmt.Fprintln(out, "  Premium: direct downloads available")
	} else {
		fmt.Fprintln(out, "  Premium: no (remote files open in the browser)")
	}
	return nil
}
