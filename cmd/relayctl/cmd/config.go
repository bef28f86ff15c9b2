package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage relayctl configuration",
	Long:  `Manage relayctl configuration settings.`,
}

// configViewCmd represents the config view command
var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	Long:  `Display the effective configuration. The webhook token is masked.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if outputJSON {
			printOutput(out, map[string]any{
				"server":      serverAddr,
				"timeout":     timeout.String(),
				"json":        outputJSON,
				"webhook_url": maskURL(webhookURL),
			})
			return
		}

		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Server: %s\n", serverAddr)
		fmt.Fprintf(out, "  Timeout: %s\n", timeout)
		fmt.Fprintf(out, "  JSON Output: %v\n", outputJSON)
		fmt.Fprintf(out, "  Webhook URL: %s\n", maskURL(webhookURL))
		if viper.ConfigFileUsed() != "" {
			fmt.Fprintf(out, "  Config file: %s\n", viper.ConfigFileUsed())
		} else {
			fmt.Fprintln(out, "  Config file: none (using defaults)")
		}
	},
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a default configuration file in the home directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("failed to get home directory: %w", err)
			}
			configPath = filepath.Join(home, ".relayctl.yaml")
		}

		force, _ := cmd.Flags().GetBool("force")
		if err := writeDefaultConfig(configPath, force); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration file created: %s\n", configPath)
		fmt.Fprintln(out, "Default settings:")
		fmt.Fprintln(out, "  server: localhost:8080")
		fmt.Fprintln(out, "  timeout: 30s")
		fmt.Fprintln(out, "  json: false")
		fmt.Fprintln(out, "  webhook_url: \"\"")
		return nil
	},
}

// writeDefaultConfig writes a fresh YAML config to path
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("server", "localhost:8080")
	v.Set("timeout", "30s")
	v.Set("json", false)
	v.Set("webhook_url", "")

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	// the file may later hold the webhook token
	return os.Chmod(path, 0o600)
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")
}
