package main

import (
	"context"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	prom "github.com/harmony-one/snapshot/api/service/prometheus"
	"github.com/harmony-one/snapshot/internal/cli"
	"github.com/harmony-one/snapshot/internal/utils"
	"github.com/harmony-one/snapshot/snapshot"
	"github.com/harmony-one/snapshot/snapshot/archive"
)

var fileFlag = cli.StringFlag{
	Name:      "file",
	Shorthand: "f",
	Usage:     "path of the snapshot archive",
	DefValue:  "",
}

var blockFlag = cli.Uint64Flag{
	Name:     "block",
	Usage:    "number of the block to snapshot, the chain head if not set",
	DefValue: 0,
}

var takeCmd = &cobra.Command{
	Use:     "take",
	Short:   "take a snapshot of the chain database",
	Long:    "take a snapshot of the state and recent blocks of the chain database into an archive.",
	Example: "snapshot take --db ./data --file ./snapshot.pack",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, stop, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer stop()

		file := cli.GetStringFlagValue(cmd, fileFlag)
		var number *uint64
		if cli.IsFlagChanged(cmd, blockFlag) {
			n := cli.GetUint64FlagValue(cmd, blockFlag)
			number = &n
		}
		_, err = takeSnapshot(cmd.Context(), config, file, number)
		return err
	},
}

func registerTakeFlags() error {
	flags := append([]cli.Flag{fileFlag, blockFlag}, chunkFlags...)
	if err := cli.RegisterFlags(takeCmd, flags); err != nil {
		return err
	}
	return takeCmd.MarkFlagRequired(fileFlag.Name)
}

// takeSnapshot writes a snapshot of block number, or of the head if number
// is nil, to file. A partial archive is removed on failure.
func takeSnapshot(
	ctx context.Context, config snapshotConfig, file string, number *uint64,
) (*snapshot.ManifestData, error) {
	sc, err := config.Snapshot.toSnapshotConfig()
	if err != nil {
		return nil, err
	}
	db, bc, err := openChain(config, true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	hash := bc.BestBlockHash()
	if number != nil {
		if hash = bc.GetCanonicalHash(*number); hash == (common.Hash{}) {
			return nil, errors.Wrapf(snapshot.ErrInvalidStartingBlock, "no canonical block %d", *number)
		}
	}

	writer, err := archive.Create(file, sc.Codec, config.Snapshot.Loose)
	if err != nil {
		return nil, err
	}

	progress := snapshot.NewProgress()
	collector := snapshot.NewProgressCollector(progress)
	if err := prom.PromRegistry().Register(collector); err == nil {
		defer prom.PromRegistry().Unregister(collector)
	}
	informCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go snapshot.ReportProgress(informCtx, progress, snapshot.DefaultReportInterval)

	manifest, err := snapshot.TakeSnapshot(ctx, bc, hash, db, writer, progress, sc)
	if err != nil {
		if abortErr := writer.Abort(); abortErr != nil {
			utils.Logger().Warn().Err(abortErr).Str("file", file).Msg("Cannot remove partial snapshot")
		}
		return nil, err
	}
	utils.Logger().Info().
		Uint64("number", manifest.BlockNumber).
		Str("hash", manifest.BlockHash.Hex()).
		Int("stateChunks", len(manifest.StateHashes)).
		Int("blockChunks", len(manifest.BlockHashes)).
		Str("size", datasize.ByteSize(progress.Size()).HR()).
		Str("file", file).
		Msg("Snapshot complete")
	return manifest, nil
}
