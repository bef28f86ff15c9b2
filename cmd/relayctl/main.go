package main

import (
	"os"

	"github.com/austindbirch/alert_relay/cmd/relayctl/cmd"
)

func main() {
	// cobra already printed the error
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
