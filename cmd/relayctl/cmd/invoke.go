package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/austindbirch/alert_relay/internal/relay"
)

// invokeCmd sends an event through a running relayd
var invokeCmd = &cobra.Command{
	Use:   "invoke [message]",
	Short: "Invoke a running relayd with an event",
	Long: `Post an event to relayd's /invoke endpoint and print the relay result.
Without a message the event carries no message field and relayd substitutes
the default alert text.

Examples:
  relayctl invoke "nightly backup failed"
  relayctl invoke --server relay.internal:8080 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		resp, err := invokeServer(ctx, eventFromArgs(args))
		if err != nil {
			return err
		}
		return printResponse(cmd.OutOrStdout(), resp)
	},
}

func invokeServer(ctx context.Context, ev relay.Event) (relay.Response, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return relay.Response{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL("/invoke"), bytes.NewReader(body))
	if err != nil {
		return relay.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := httpClient().Do(req)
	if err != nil {
		return relay.Response{}, fmt.Errorf("failed to reach relayd: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return relay.Response{}, fmt.Errorf("relayd returned HTTP %d", httpResp.StatusCode)
	}

	var resp relay.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return relay.Response{}, fmt.Errorf("failed to decode relayd response: %w", err)
	}
	return resp, nil
}

func init() {
	rootCmd.AddCommand(invokeCmd)
}
