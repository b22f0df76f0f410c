package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mediagrab/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage per-site cookie secrets",
	Long: `Manage the per-site secret values crawlers inject as cookies, such as
the DDOS-Guard values some sites require.

Secrets are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (MEDIAGRAB_AUTH_<SITE>_<KEY>, read-only)`,
}

// authSetCmd stores one secret value for a site
var authSetCmd = &cobra.Command{
	Use:   "set <site> <key>",
	Short: "Store a secret value for a site",
	Long: `Store one secret value for a site. The value is prompted for and
hidden as you type.

To find a site's cookie values, log into the site in your browser, open
Developer Tools, and copy them from Application/Storage > Cookies.`,
	Example: `  # Store the DDOS-Guard values for bunkr
  mediagrab auth set bunkr ddg1
  mediagrab auth set bunkr ddg2
  mediagrab auth set bunkr ddgid`,
	Args: cobra.ExactArgs(2),
	RunE: runAuthSet,
}

// authListCmd lists stored site secrets with masked values
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored site secrets",
	Args:  cobra.NoArgs,
	RunE:  runAuthList,
}

// authRemoveCmd deletes all secrets for a site
var authRemoveCmd = &cobra.Command{
	Use:   "remove <site>",
	Short: "Remove all stored secrets for a site",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSetCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authRemoveCmd)
}

func runAuthSet(cmd *cobra.Command, args []string) error {
	site := strings.ToLower(strings.TrimSpace(args[0]))
	key := strings.ToLower(strings.TrimSpace(args[1]))
	if site == "" || key == "" {
		return fmt.Errorf("site and key are required")
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	fmt.Printf("Value for %s/%s: ", site, key)
	value, err := readSecret()
	if err != nil {
		return fmt.Errorf("failed to read value: %w", err)
	}
	if value == "" {
		return fmt.Errorf("empty value")
	}

	secrets, err := manager.Retrieve(site)
	if err != nil {
		secrets = &auth.SiteSecrets{Site: site, Values: make(map[string]string)}
	}
	secrets.Values[key] = value
	secrets.LastModified = time.Now()

	if err := manager.Store(secrets); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	fmt.Printf("Stored %s/%s\n", site, key)
	return nil
}

func runAuthList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	stored, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list secrets: %w", err)
	}
	if len(stored) == 0 {
		fmt.Println("No stored secrets. Use 'mediagrab auth set <site> <key>' to add one.")
		return nil
	}

	for _, secrets := range stored {
		masked := auth.MaskSecrets(secrets)
		fmt.Printf("%s (modified %s)\n", masked.Site, masked.LastModified.Format("2006-01-02 15:04:05"))
		for key, value := range masked.Values {
			fmt.Printf("  %s: %s\n", key, value)
		}
	}
	return nil
}

func runAuthRemove(cmd *cobra.Command, args []string) error {
	site := strings.ToLower(strings.TrimSpace(args[0]))

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize secret manager: %w", err)
	}

	if err := manager.Delete(site); err != nil {
		return err
	}
	fmt.Printf("Removed secrets for %s\n", site)
	return nil
}

// readSecret reads a value from stdin without echoing when possible
func readSecret() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
