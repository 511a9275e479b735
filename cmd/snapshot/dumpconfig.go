package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dumpConfigCmd = &cobra.Command{
	Use:   "dumpconfig [config_file]",
	Short: "dump the default config file",
	Long:  "dump the default config file with the flags given applied, to be edited and passed with --config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := getSnapshotConfig(cmd)
		if err != nil {
			return err
		}
		if err := writeSnapshotConfigToFile(config, args[0]); err != nil {
			return err
		}
		fmt.Println("config dumped to", args[0])
		return nil
	},
}
