package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/austindbirch/alert_relay/internal/health"
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of a running relayd",
	Long:  `Query relayd's /healthz endpoint and report whether a webhook URL is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, code, err := fetchHealth()
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputJSON {
			printOutput(out, st)
			return nil
		}
		if code == http.StatusOK && st.OK {
			fmt.Fprintln(out, "✓ relayd is healthy")
		} else {
			fmt.Fprintf(out, "✗ relayd is unhealthy (HTTP %d)\n", code)
		}
		if !st.WebhookConfigured {
			fmt.Fprintf(out, "  ⚠️  %s\n", st.Message)
		}
		return nil
	},
}

func fetchHealth() (health.Status, int, error) {
	resp, err := httpClient().Get(serverURL("/healthz"))
	if err != nil {
		return health.Status{}, 0, err
	}
	defer resp.Body.Close()

	var st health.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return health.Status{}, resp.StatusCode, fmt.Errorf("failed to decode health status: %w", err)
	}
	return st, resp.StatusCode, nil
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
