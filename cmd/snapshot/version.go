package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	versionFormat = "Harmony (C) 2023. %v, version %v-%v (%v %v)"
)

// Version string variables
var (
	version string
	builtBy string
	builtAt string
	commit  string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version of the snapshot binary",
	Long:  "print version of the snapshot binary",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func getSnapshotVersion() string {
	return fmt.Sprintf(versionFormat, "snapshot", version, commit, builtBy, builtAt)
}

func printVersion() {
	fmt.Println(getSnapshotVersion())
}
