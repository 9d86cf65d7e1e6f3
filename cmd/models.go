package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Try the configured models and print the first that answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("models"); err != nil {
			return err
		}

		gw := newGateway(cfg)
		m, err := gw.SelectModel(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), m)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
