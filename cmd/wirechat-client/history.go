package main

import (
	"github.com/spf13/cobra"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history <conversation-id>",
	Short: "Print conversation scrollback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := openCache()
		if err != nil {
			return err
		}
		defer cache.Close()

		msgs, err := hydrate(cmd.Context(), newRESTClient(), cache, args[0], flagHistoryLimit)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			printMessage(m)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 50, "messages to fetch")
}
