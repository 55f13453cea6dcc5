package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omochice/linechat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the client configuration file",
}

var flagForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault(flagConfig, flagForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing config")
	configCmd.AddCommand(configInitCmd)
}
