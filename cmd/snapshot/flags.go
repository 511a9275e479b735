package main

import (
	"github.com/spf13/cobra"

	"github.com/harmony-one/snapshot/internal/cli"
)

var (
	globalFlags = []cli.Flag{
		configFlag,
		dataDirFlag,
		genesisFlag,
		logFolderFlag,
		logFileNameFlag,
		logRotateSizeFlag,
		logVerbosityFlag,
		metricsEnabledFlag,
		metricsAddrFlag,
	}

	chunkFlags = []cli.Flag{
		chunkSizeFlag,
		maxChunkSizeFlag,
		retentionFlag,
		sealVerifyRateFlag,
		workersFlag,
		codecFlag,
		looseFlag,
	}
)

// global flags
var (
	configFlag = cli.StringFlag{
		Name:      "config",
		Usage:     "load snapshot config from the config toml file.",
		Shorthand: "c",
		DefValue:  "",
	}
	dataDirFlag = cli.StringFlag{
		Name:     "db",
		Usage:    "directory of the chain database",
		DefValue: defaultConfig.General.DataDir,
	}
	genesisFlag = cli.StringFlag{
		Name:     "genesis",
		Usage:    "JSON genesis file, the built-in genesis if empty",
		DefValue: defaultConfig.General.Genesis,
	}
	logFolderFlag = cli.StringFlag{
		Name:     "log.dir",
		Usage:    "directory path to put rotation logs, console only if empty",
		DefValue: defaultConfig.Log.Folder,
	}
	logFileNameFlag = cli.StringFlag{
		Name:     "log.file",
		Usage:    "file name of the rotation log",
		DefValue: defaultConfig.Log.FileName,
	}
	logRotateSizeFlag = cli.IntFlag{
		Name:     "log.max-size",
		Usage:    "rotation log size in megabytes",
		DefValue: defaultConfig.Log.RotateSize,
	}
	logVerbosityFlag = cli.IntFlag{
		Name:      "log.verbosity",
		Shorthand: "v",
		Usage:     "logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace",
		DefValue:  defaultConfig.Log.Verbosity,
	}
	metricsEnabledFlag = cli.BoolFlag{
		Name:     "metrics",
		Usage:    "serve prometheus metrics",
		DefValue: defaultConfig.Metrics.Enabled,
	}
	metricsAddrFlag = cli.StringFlag{
		Name:     "metrics.addr",
		Usage:    "listen address of the metrics server, implies --metrics",
		DefValue: defaultConfig.Metrics.Addr,
	}
)

// chunk flags
var (
	chunkSizeFlag = cli.StringFlag{
		Name:     "chunk.size",
		Usage:    "target size of an uncompressed chunk, e.g. 4MB",
		DefValue: defaultConfig.Snapshot.ChunkSize,
	}
	maxChunkSizeFlag = cli.StringFlag{
		Name:     "chunk.max-size",
		Usage:    "largest accepted decompressed chunk",
		DefValue: defaultConfig.Snapshot.MaxChunkSize,
	}
	retentionFlag = cli.Uint64Flag{
		Name:     "retention",
		Usage:    "number of blocks kept before the snapshot block",
		DefValue: defaultConfig.Snapshot.RetentionBlocks,
	}
	sealVerifyRateFlag = cli.Float64Flag{
		Name:     "seal.rate",
		Usage:    "share of restored blocks whose seal is verified",
		DefValue: defaultConfig.Snapshot.SealVerifyRate,
	}
	workersFlag = cli.IntFlag{
		Name:     "workers",
		Usage:    "number of goroutines restoring a state chunk",
		DefValue: defaultConfig.Snapshot.Workers,
	}
	codecFlag = cli.StringFlag{
		Name:     "codec",
		Usage:    "chunk compression: snappy, zstd",
		DefValue: defaultConfig.Snapshot.Codec,
	}
	looseFlag = cli.BoolFlag{
		Name:     "loose",
		Usage:    "write a directory with one file per chunk instead of a packed file",
		DefValue: defaultConfig.Snapshot.Loose,
	}
)

func applyGeneralFlags(cmd *cobra.Command, config *snapshotConfig) {
	if cli.IsFlagChanged(cmd, dataDirFlag) {
		config.General.DataDir = cli.GetStringFlagValue(cmd, dataDirFlag)
	}
	if cli.IsFlagChanged(cmd, genesisFlag) {
		config.General.Genesis = cli.GetStringFlagValue(cmd, genesisFlag)
	}
}

func applyLogFlags(cmd *cobra.Command, config *snapshotConfig) {
	if cli.IsFlagChanged(cmd, logFolderFlag) {
		config.Log.Folder = cli.GetStringFlagValue(cmd, logFolderFlag)
	}
	if cli.IsFlagChanged(cmd, logFileNameFlag) {
		config.Log.FileName = cli.GetStringFlagValue(cmd, logFileNameFlag)
	}
	if cli.IsFlagChanged(cmd, logRotateSizeFlag) {
		config.Log.RotateSize = cli.GetIntFlagValue(cmd, logRotateSizeFlag)
	}
	if cli.IsFlagChanged(cmd, logVerbosityFlag) {
		config.Log.Verbosity = cli.GetIntFlagValue(cmd, logVerbosityFlag)
	}
}

func applyMetricsFlags(cmd *cobra.Command, config *snapshotConfig) {
	if cli.IsFlagChanged(cmd, metricsEnabledFlag) {
		config.Metrics.Enabled = cli.GetBoolFlagValue(cmd, metricsEnabledFlag)
	}
	if cli.IsFlagChanged(cmd, metricsAddrFlag) {
		config.Metrics.Addr = cli.GetStringFlagValue(cmd, metricsAddrFlag)
		config.Metrics.Enabled = true
	}
}

// applyChunkFlags reads the chunk flags of commands that registered them.
func applyChunkFlags(cmd *cobra.Command, config *snapshotConfig) {
	if cmd.Flags().Lookup(chunkSizeFlag.Name) == nil {
		return
	}
	if cli.IsFlagChanged(cmd, chunkSizeFlag) {
		config.Snapshot.ChunkSize = cli.GetStringFlagValue(cmd, chunkSizeFlag)
	}
	if cli.IsFlagChanged(cmd, maxChunkSizeFlag) {
		config.Snapshot.MaxChunkSize = cli.GetStringFlagValue(cmd, maxChunkSizeFlag)
	}
	if cli.IsFlagChanged(cmd, retentionFlag) {
		config.Snapshot.RetentionBlocks = cli.GetUint64FlagValue(cmd, retentionFlag)
	}
	if cli.IsFlagChanged(cmd, sealVerifyRateFlag) {
		config.Snapshot.SealVerifyRate = cli.GetFloat64FlagValue(cmd, sealVerifyRateFlag)
	}
	if cli.IsFlagChanged(cmd, workersFlag) {
		config.Snapshot.Workers = cli.GetIntFlagValue(cmd, workersFlag)
	}
	if cli.IsFlagChanged(cmd, codecFlag) {
		config.Snapshot.Codec = cli.GetStringFlagValue(cmd, codecFlag)
	}
	if cli.IsFlagChanged(cmd, looseFlag) {
		config.Snapshot.Loose = cli.GetBoolFlagValue(cmd, looseFlag)
	}
}
