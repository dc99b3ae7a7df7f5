package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/focusops/secret"
)

var keychainService string

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials in the OS keychain",
	Long: `secret stores credentials in the OS keychain so the config can refer to
them as secretref:keychain:<name> instead of holding them in plain text.`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set NAME",
	Short: "Store a value read from stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && value == "" {
			return fmt.Errorf("read value: %w", err)
		}
		value = strings.TrimRight(value, "\r\n")
		if value == "" {
			return fmt.Errorf("empty value")
		}
		return withKeychain(func(p *secret.KeychainProvider) error {
			if err := p.Set(args[0], value); err != nil {
				return err
			}
			pterm.Println("Stored. Refer to it as secretref:keychain:" + args[0])
			return nil
		})
	},
}

var secretListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeychain(func(p *secret.KeychainProvider) error {
			keys, err := p.Keys()
			if err != nil {
				return err
			}
			sort.Strings(keys)
			items := make([]pterm.BulletListItem, 0, len(keys))
			for _, k := range keys {
				items = append(items, pterm.BulletListItem{Level: 0, Text: k})
			}
			if len(items) == 0 {
				pterm.Println("No credentials stored.")
				return nil
			}
			return pterm.DefaultBulletList.WithItems(items).Render()
		})
	},
}

var secretRemoveCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove a stored value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKeychain(func(p *secret.KeychainProvider) error {
			return p.Remove(args[0])
		})
	},
}

func withKeychain(fn func(*secret.KeychainProvider) error) error {
	p, err := secret.NewKeychainProvider(secret.KeychainConfig{Service: keychainService})
	if err != nil {
		fmt.Fprintln(os.Stderr, "The OS keychain is not available on this system.")
		return err
	}
	defer p.Close()
	return fn(p)
}

func init() {
	secretCmd.PersistentFlags().StringVar(&keychainService, "service", secret.ServiceName, "keychain service name")
	secretCmd.AddCommand(secretSetCmd, secretListCmd, secretRemoveCmd)
	rootCmd.AddCommand(secretCmd)
}
