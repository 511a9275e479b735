package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/harmony-one/snapshot/core"
	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/chain"
	"github.com/harmony-one/snapshot/internal/cli"
	"github.com/harmony-one/snapshot/internal/utils"
	"github.com/harmony-one/snapshot/snapshot"
	"github.com/harmony-one/snapshot/snapshot/archive"
)

var restoreCmd = &cobra.Command{
	Use:     "restore",
	Short:   "restore a chain database from a snapshot",
	Long:    "restore a fresh chain database from a snapshot archive.",
	Example: "snapshot restore --db ./data --file ./snapshot.pack",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, stop, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer stop()

		file := cli.GetStringFlagValue(cmd, fileFlag)
		return restoreSnapshot(cmd.Context(), config, file)
	},
}

func registerRestoreFlags() error {
	flags := append([]cli.Flag{fileFlag}, chunkFlags...)
	if err := cli.RegisterFlags(restoreCmd, flags); err != nil {
		return err
	}
	return restoreCmd.MarkFlagRequired(fileFlag.Name)
}

// restoreSnapshot rebuilds the chain database of config from the archive
// at file. The database must not exist yet.
func restoreSnapshot(ctx context.Context, config snapshotConfig, file string) error {
	sc, err := config.Snapshot.toSnapshotConfig()
	if err != nil {
		return err
	}
	reader, err := archive.Open(file)
	if err != nil {
		return err
	}
	defer reader.Close()
	sc.Codec = reader.Codec()

	factory := dbFactory(config)
	fresh, err := factory.IsFresh()
	if err != nil {
		return err
	}
	if !fresh {
		return errors.Errorf("chain database in %s is not empty", config.General.DataDir)
	}
	db, err := factory.NewChainDB()
	if err != nil {
		return err
	}
	defer db.Close()
	if rawdb.ReadSnapshotManifest(db) != nil {
		return errors.New("database already holds a snapshot restoration")
	}

	genesis, err := genesisBlock(config)
	if err != nil {
		return err
	}
	bc, err := core.NewBlockChain(db, genesis)
	if err != nil {
		return err
	}

	manifest := reader.Manifest()
	logger := utils.Logger().With().
		Uint64("number", manifest.BlockNumber).
		Str("hash", manifest.BlockHash.Hex()).
		Logger()
	logger.Info().Str("file", file).Msg("Restoring snapshot")

	restoration, err := snapshot.NewRestoration(manifest, db, bc, chain.NewEngine(chain.DefaultConfig), sc)
	if err != nil {
		return err
	}
	informCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go snapshot.ReportRestoration(informCtx, restoration, snapshot.DefaultReportInterval)

	if err := snapshot.RestoreFrom(ctx, reader, restoration); err != nil {
		logger.Error().Err(err).Str("state", restoration.Status().State.String()).Msg("Restoration failed")
		return err
	}
	logger.Info().Str("head", bc.BestBlockHash().Hex()).Msg("Restoration complete")
	return nil
}
