package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"twitsent/pkg/auth"
	"twitsent/pkg/ui"
)

var (
	loginElevated bool
	showGuide     bool
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage search API bearer tokens",
	Long: `Manage stored bearer tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - TWITSENT_BEARER_TOKEN (read only, overrides the default account)

Never share your tokens or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a bearer token securely",
	Long: `Store a bearer token in the system keychain or encrypted file.

The token is read without echo. Without a name it is stored as the default
account, which collect uses unless --account is given.`,
	Example: `  # Store the default token
  twitsent auth login

  # Store a full-archive token under its own name
  twitsent auth login research --elevated

  # Show how to get a token first
  twitsent auth login --guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [name]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

// listCmd represents the auth list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored accounts",
	Long:  `List stored accounts with their tokens masked.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	loginCmd.Flags().BoolVar(&loginElevated, "elevated", false, "the token has full-archive search access")
	loginCmd.Flags().BoolVar(&showGuide, "guide", false, "show how to obtain a bearer token")
}

func newCredentialManager() (*auth.Manager, error) {
	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return nil, fmt.Errorf("initializing credential manager: %w", err)
	}
	return manager, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return err
	}

	name := auth.DefaultName
	if len(args) > 0 {
		name = strings.TrimSpace(args[0])
	}
	if name == "" {
		return errors.New("account name cannot be empty")
	}

	if showGuide {
		auth.ShowTokenGuide(ui.Output)
	} else {
		auth.ShowQuickTokenGuide(ui.Output)
	}
	fmt.Fprintln(ui.Output)

	reader := bufio.NewReader(os.Stdin)
	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Fprintf(ui.Output, "Account '%s' already exists. Replace its token? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	var token string
	for {
		fmt.Fprint(ui.Output, "Bearer token (hidden): ")
		token, err = readSecret(reader)
		fmt.Fprintln(ui.Output)
		if err != nil {
			return fmt.Errorf("reading token: %w", err)
		}
		verr := validateToken(token)
		if verr == nil {
			break
		}
		ui.PrintWarning("That does not look like a bearer token", verr.Error())

		fmt.Fprint(ui.Output, "Try again? (Y/n): ")
		retry, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(retry)) == "n" {
			return errors.New("no token stored")
		}
	}

	cred := &auth.Credential{
		Name:         name,
		BearerToken:  token,
		Elevated:     loginElevated,
		LastModified: time.Now(),
	}
	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	sanitized := auth.SanitizeCredential(cred)
	ui.PrintSuccess(fmt.Sprintf("Token saved for account '%s'", name))
	ui.PrintInfo("Token", sanitized.BearerToken)
	ui.PrintInfo("Tier", tierName(cred.Elevated))

	fmt.Fprintln(ui.Output, "\nNext steps:")
	fmt.Fprintln(ui.Output, "  twitsent plan           # estimate a run")
	if name == auth.DefaultName {
		fmt.Fprintln(ui.Output, "  twitsent collect        # collect the last six days")
	} else {
		fmt.Fprintf(ui.Output, "  twitsent collect --account %s\n", name)
	}
	return nil
}

// readSecret reads a line without echo when stdin is a terminal.
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func validateToken(token string) error {
	switch {
	case token == "":
		return errors.New("it is empty")
	case strings.ContainsAny(token, " \t"):
		return errors.New("it contains whitespace")
	case strings.HasPrefix(strings.ToLower(token), "bearer"):
		return errors.New("paste only the token, without the 'Bearer' prefix")
	case len(token) < 20:
		return errors.New("it is too short")
	}
	return nil
}

func tierName(elevated bool) string {
	if elevated {
		return "full archive"
	}
	return "recent search"
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return err
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	} else {
		creds, err := manager.List()
		if err != nil || len(creds) == 0 {
			ui.PrintWarning("No stored accounts found")
			return nil
		}

		fmt.Fprintln(ui.Output, "Select account to remove:")
		for i, cred := range creds {
			fmt.Fprintf(ui.Output, "  %d. %s\n", i+1, cred.Name)
		}
		fmt.Fprintf(ui.Output, "  0. Cancel\n\nChoice: ")

		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		var choice int
		fmt.Sscanf(strings.TrimSpace(input), "%d", &choice)
		if choice < 1 || choice > len(creds) {
			return nil
		}
		name = creds[choice-1].Name
	}

	if err := manager.Delete(name); err != nil {
		return fmt.Errorf("removing account: %w", err)
	}
	ui.PrintSuccess("Account removed: " + name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newCredentialManager()
	if err != nil {
		return err
	}

	creds, err := manager.List()
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'twitsent auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Accounts")
	fmt.Fprintln(ui.Output)
	for i, cred := range creds {
		sanitized := auth.SanitizeCredential(cred)
		fmt.Fprintf(ui.Output, "%d. %s\n", i+1, sanitized.Name)
		fmt.Fprintf(ui.Output, "   Token: %s\n", sanitized.BearerToken)
		fmt.Fprintf(ui.Output, "   Tier: %s\n", tierName(sanitized.Elevated))
		if !sanitized.LastModified.IsZero() {
			fmt.Fprintf(ui.Output, "   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(ui.Output)
	}
	return nil
}
