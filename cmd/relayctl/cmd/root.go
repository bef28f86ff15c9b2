package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/austindbirch/alert_relay/internal/relay"
)

var (
	cfgFile    string
	serverAddr string
	timeout    time.Duration
	outputJSON bool
	webhookURL string
)

// errNotDelivered makes the process exit non-zero when the relay reports
// anything but 200
var errNotDelivered = errors.New("message not delivered")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Alert Relay CLI - send alerts to a Slack webhook",
	Long: `Alert Relay CLI (relayctl) sends alert messages to a Slack incoming
webhook, either directly from this machine or through a running relayd.

The webhook URL is read from --webhook-url, the webhook_url config key or the
SLACK_WEBHOOK_URL environment variable.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.relayctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "localhost:8080", "relayd address (host:port)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&webhookURL, "webhook-url", "", "Slack webhook URL for local sends")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("webhook_url", rootCmd.PersistentFlags().Lookup("webhook-url"))
	_ = viper.BindEnv("webhook_url", "SLACK_WEBHOOK_URL")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".relayctl")
	}

	viper.SetEnvPrefix("RELAYCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	applyConfig(rootCmd)
}

// applyConfig copies viper values into the globals for flags the user did not set
func applyConfig(root *cobra.Command) {
	flags := root.PersistentFlags()
	if !flags.Changed("server") {
		if s := viper.GetString("server"); s != "" {
			serverAddr = s
		}
	}
	if !flags.Changed("timeout") {
		if d := viper.GetDuration("timeout"); d > 0 {
			timeout = d
		}
	}
	if !flags.Changed("json") {
		outputJSON = viper.GetBool("json")
	}
	if !flags.Changed("webhook-url") {
		webhookURL = viper.GetString("webhook_url")
	}
}

// eventFromArgs builds the relay event; no argument means no message
func eventFromArgs(args []string) relay.Event {
	if len(args) == 0 {
		return relay.Event{}
	}
	return relay.NewEvent(strings.Join(args, " "))
}

// serverURL turns the --server address into a base URL
func serverURL(path string) string {
	if strings.HasPrefix(serverAddr, "http://") || strings.HasPrefix(serverAddr, "https://") {
		return strings.TrimSuffix(serverAddr, "/") + path
	}
	return "http://" + serverAddr + path
}

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

// printResponse prints a relay response and reports whether it was delivered
func printResponse(w io.Writer, resp relay.Response) error {
	if outputJSON {
		printOutput(w, resp)
	} else if resp.StatusCode == http.StatusOK {
		fmt.Fprintf(w, "✓ Delivered (%d %s)\n", resp.StatusCode, resp.Body)
	} else {
		fmt.Fprintf(w, "✗ Not delivered (%d): %s\n", resp.StatusCode, resp.Body)
	}
	if resp.StatusCode != http.StatusOK {
		return errNotDelivered
	}
	return nil
}

// printOutput prints v in the requested format
func printOutput(w io.Writer, v any) {
	if !outputJSON {
		fmt.Fprintf(w, "%+v\n", v)
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling to JSON: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(data))
}

// maskURL hides the token part of a webhook URL
func maskURL(u string) string {
	if u == "" {
		return "(not set)"
	}
	i := strings.LastIndex(u, "/")
	if i < 0 || i == len(u)-1 {
		return u
	}
	return u[:i+1] + "****"
}
