package main

import (
	"fmt"
	"io"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/harmony-one/snapshot/internal/cli"
	"github.com/harmony-one/snapshot/snapshot/archive"
)

var chunksFlag = cli.BoolFlag{
	Name:     "chunks",
	Usage:    "list every chunk of the archive",
	DefValue: false,
}

var inspectCmd = &cobra.Command{
	Use:     "inspect",
	Short:   "print the manifest of a snapshot archive",
	Long:    "print the manifest of a snapshot archive, and optionally every chunk with its size.",
	Example: "snapshot inspect --file ./snapshot.pack --chunks",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file := cli.GetStringFlagValue(cmd, fileFlag)
		listChunks := cli.GetBoolFlagValue(cmd, chunksFlag)
		return inspectArchive(os.Stdout, file, listChunks)
	},
}

func registerInspectFlags() error {
	if err := cli.RegisterFlags(inspectCmd, []cli.Flag{fileFlag, chunksFlag}); err != nil {
		return err
	}
	return inspectCmd.MarkFlagRequired(fileFlag.Name)
}

func inspectArchive(out io.Writer, file string, listChunks bool) error {
	reader, err := archive.Open(file)
	if err != nil {
		return err
	}
	defer reader.Close()
	manifest := reader.Manifest()

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"Block number", fmt.Sprintf("%d", manifest.BlockNumber)},
		{"Block hash", manifest.BlockHash.Hex()},
		{"State root", manifest.StateRoot.Hex()},
		{"State chunks", fmt.Sprintf("%d", len(manifest.StateHashes))},
		{"Block chunks", fmt.Sprintf("%d", len(manifest.BlockHashes))},
		{"Codec", reader.Codec()},
	})
	table.Render()

	if !listChunks {
		return nil
	}
	var total datasize.ByteSize
	chunks := tablewriter.NewWriter(out)
	chunks.SetHeader([]string{"#", "Kind", "Hash", "Size"})
	for _, kind := range []struct {
		name   string
		hashes []common.Hash
	}{
		{"state", manifest.StateHashes},
		{"block", manifest.BlockHashes},
	} {
		for i, hash := range kind.hashes {
			chunk, err := reader.Chunk(hash)
			if err != nil {
				return err
			}
			size := datasize.ByteSize(len(chunk))
			total += size
			chunks.Append([]string{fmt.Sprintf("%d", i), kind.name, hash.Hex(), size.HR()})
		}
	}
	chunks.SetFooter([]string{"", "", "Total", total.HR()})
	chunks.Render()
	return nil
}
