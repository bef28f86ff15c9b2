package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/relay"
)

var verbose bool

// sendCmd runs the relay in-process
var sendCmd = &cobra.Command{
	Use:   "send [message]",
	Short: "Send a message straight to the Slack webhook",
	Long: `Send a message to the Slack webhook from this machine, using the same
relay logic as the Lambda function. Without a message the default alert text
is sent.

Examples:
  relayctl send "disk usage over 90% on db-1"
  relayctl send --webhook-url https://hooks.slack.com/services/T/B/X`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logOut := io.Discard
		if verbose {
			logOut = cmd.ErrOrStderr()
		}
		resp := runSend(cmd.Context(), webhookURL, eventFromArgs(args), logging.NewWithWriter("relayctl", logOut))
		return printResponse(cmd.OutOrStdout(), resp)
	},
}

func runSend(ctx context.Context, url string, ev relay.Event, logger *logging.Logger) relay.Response {
	if ctx == nil {
		ctx = context.Background()
	}
	d := dispatch.New(url,
		dispatch.WithTimeout(timeout),
		dispatch.WithLogger(logger),
	)
	h := relay.NewHandler(d,
		relay.WithLogger(logger),
		relay.WithTrigger("cli"),
	)
	return h.Handle(ctx, ev)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print relay logs to stderr")
}
