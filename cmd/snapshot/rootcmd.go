package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	prom "github.com/harmony-one/snapshot/api/service/prometheus"
	"github.com/harmony-one/snapshot/internal/cli"
	"github.com/harmony-one/snapshot/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "take and restore chain snapshots",
	Long: "snapshot serializes the state and recent blocks of a chain database into a " +
		"content-addressed chunk archive, and rebuilds a database from such an archive.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func registerRootCmdFlags() error {
	return cli.RegisterPFlags(rootCmd, globalFlags)
}

func init() {
	cli.SetParseErrorHandle(func(err error) {
		fmt.Println(err)
		os.Exit(128)
	})

	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(dumpConfigCmd)
	rootCmd.AddCommand(versionCmd)

	for _, register := range []func() error{
		registerRootCmdFlags,
		registerTakeFlags,
		registerRestoreFlags,
		registerInspectFlags,
		registerGenerateFlags,
	} {
		if err := register(); err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
	}
}

func getSnapshotConfig(cmd *cobra.Command) (snapshotConfig, error) {
	var (
		config snapshotConfig
		err    error
	)
	if cli.IsFlagChanged(cmd, configFlag) {
		configFile := cli.GetStringFlagValue(cmd, configFlag)
		config, err = loadSnapshotConfig(configFile)
	} else {
		config = getDefaultSnapshotConfigCopy()
	}
	if err != nil {
		return snapshotConfig{}, err
	}

	applyGeneralFlags(cmd, &config)
	applyLogFlags(cmd, &config)
	applyMetricsFlags(cmd, &config)
	applyChunkFlags(cmd, &config)

	if err := validateSnapshotConfig(config); err != nil {
		return snapshotConfig{}, err
	}
	return config, nil
}

func setupLog(config snapshotConfig) error {
	utils.SetLogVerbosity(config.Log.Verbosity)
	if config.Log.Folder == "" {
		return nil
	}
	logPath := filepath.Join(config.Log.Folder, config.Log.FileName)
	return utils.AddLogFile(logPath, config.Log.RotateSize)
}

// setupMetrics starts the metrics server if enabled and returns the
// function stopping it.
func setupMetrics(config snapshotConfig) (func(), error) {
	if !config.Metrics.Enabled {
		return func() {}, nil
	}
	service := prom.NewService(config.Metrics.Addr)
	if err := service.Start(); err != nil {
		return nil, err
	}
	return func() {
		if err := service.Stop(); err != nil {
			utils.Logger().Warn().Err(err).Msg("Cannot stop metrics server")
		}
	}, nil
}

// setupCommand loads the config of cmd and starts logging and metrics.
func setupCommand(cmd *cobra.Command) (snapshotConfig, func(), error) {
	config, err := getSnapshotConfig(cmd)
	if err != nil {
		return snapshotConfig{}, nil, err
	}
	if err := setupLog(config); err != nil {
		return snapshotConfig{}, nil, err
	}
	stop, err := setupMetrics(config)
	if err != nil {
		return snapshotConfig{}, nil, err
	}
	return config, stop, nil
}
