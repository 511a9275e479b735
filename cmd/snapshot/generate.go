package main

import (
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/harmony-one/snapshot/core"
	"github.com/harmony-one/snapshot/internal/chain"
	"github.com/harmony-one/snapshot/internal/cli"
	"github.com/harmony-one/snapshot/internal/utils"
)

var (
	blocksFlag = cli.IntFlag{
		Name:     "blocks",
		Usage:    "number of blocks to generate on top of genesis",
		DefValue: 1000,
	}
	accountsFlag = cli.IntFlag{
		Name:     "accounts",
		Usage:    "number of accounts allocated at genesis",
		DefValue: 1000,
	}
	txsFlag = cli.IntFlag{
		Name:     "txs",
		Usage:    "number of transfers per block",
		DefValue: 2,
	}
	genesisOutFlag = cli.StringFlag{
		Name:     "genesis.out",
		Usage:    "write the generated genesis as JSON to this file",
		DefValue: "",
	}
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Short:   "generate a synthetic chain database",
	Long:    "generate a sealed synthetic chain with a populated genesis state into a fresh database.",
	Example: "snapshot generate --db ./data --blocks 5000 --accounts 10000",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, stop, err := setupCommand(cmd)
		if err != nil {
			return err
		}
		defer stop()

		return generateChain(config, generateOptions{
			blocks:     cli.GetIntFlagValue(cmd, blocksFlag),
			accounts:   cli.GetIntFlagValue(cmd, accountsFlag),
			txs:        cli.GetIntFlagValue(cmd, txsFlag),
			genesisOut: cli.GetStringFlagValue(cmd, genesisOutFlag),
		})
	},
}

func registerGenerateFlags() error {
	return cli.RegisterFlags(generateCmd, []cli.Flag{blocksFlag, accountsFlag, txsFlag, genesisOutFlag})
}

// every uncleInterval-th generated block carries an uncle
const uncleInterval = 10

var generatedCode = [][]byte{
	common.FromHex("0x6080604052348015600f57600080fd5b50603580601d6000396000f3fe"),
	common.FromHex("0x60016002016000526001601ff3"),
	common.FromHex("0x600035600055"),
}

// generateAlloc returns n accounts with deterministic addresses. Every
// third account shares one of a few contracts, every seventh has storage.
func generateAlloc(n int) core.GenesisAlloc {
	alloc := make(core.GenesisAlloc, n)
	for i := 0; i < n; i++ {
		account := core.GenesisAccount{
			Balance: new(big.Int).Mul(big.NewInt(int64(i+1)), big.NewInt(1e18)),
			Nonce:   uint64(i % 3),
		}
		if i%3 == 0 {
			account.Code = generatedCode[(i/3)%len(generatedCode)]
		}
		if i%7 == 0 {
			account.Storage = make(map[common.Hash]common.Hash)
			for j := 0; j <= i%16; j++ {
				account.Storage[common.BigToHash(big.NewInt(int64(j)))] = common.BigToHash(big.NewInt(int64(i + j + 1)))
			}
		}
		alloc[common.BigToAddress(big.NewInt(int64(i+1)))] = account
	}
	return alloc
}

type generateOptions struct {
	blocks, accounts, txs int
	genesisOut            string
}

// generateChain writes a genesis with the given number of accounts and a
// chain of blocks on top of it into the fresh database of config.
func generateChain(config snapshotConfig, opts generateOptions) error {
	blocks, accounts, txs := opts.blocks, opts.accounts, opts.txs
	if blocks < 0 || accounts < 0 || txs < 0 {
		return errors.New("counts must not be negative")
	}
	factory := dbFactory(config)
	fresh, err := factory.IsFresh()
	if err != nil {
		return err
	}
	if !fresh {
		return errors.Errorf("chain database in %s is not empty", config.General.DataDir)
	}
	genesis, err := loadGenesis(config)
	if err != nil {
		return err
	}
	if accounts > 0 {
		genesis.Alloc = generateAlloc(accounts)
	}
	if opts.genesisOut != "" {
		if err := writeGenesis(genesis, opts.genesisOut); err != nil {
			return err
		}
	}

	db, err := factory.NewChainDB()
	if err != nil {
		return err
	}
	defer db.Close()
	genesisBlock, err := genesis.ToBlock(db)
	if err != nil {
		return err
	}
	bc, err := core.NewBlockChain(db, genesisBlock)
	if err != nil {
		return err
	}

	key, err := generatorKey()
	if err != nil {
		return err
	}
	signer := types.HomesteadSigner{}
	miner := crypto.PubkeyToAddress(key.PublicKey)
	nonce := uint64(0)
	var genErr error
	chainBlocks, receipts := core.GenerateChain(genesisBlock, chain.NewEngine(chain.DefaultConfig), blocks,
		func(i int, b *core.BlockGen) {
			b.SetCoinbase(miner)
			if i > 0 && i%uncleInterval == 0 {
				// a sibling of the parent
				uncle := types.CopyHeader(b.PrevBlock(i - 1).Header())
				uncle.Extra = []byte("uncle")
				b.AddUncle(uncle)
			}
			for j := 0; j < txs; j++ {
				to := common.BigToAddress(big.NewInt(int64((i*txs+j)%(accounts+1) + 1)))
				tx, err := types.SignTx(types.NewTransaction(nonce, to, big.NewInt(1), 21000, big.NewInt(1), nil), signer, key)
				if err != nil {
					genErr = err
					return
				}
				nonce++
				b.AddTx(tx)
			}
		})
	if genErr != nil {
		return errors.Wrap(genErr, "cannot sign transaction")
	}
	for i, block := range chainBlocks {
		if err := bc.InsertBlock(block, receipts[i]); err != nil {
			return err
		}
	}
	utils.Logger().Info().
		Int("accounts", len(genesis.Alloc)).
		Uint64("head", bc.CurrentBlock().NumberU64()).
		Str("root", genesisBlock.Root().Hex()).
		Msg("Generated chain")
	return nil
}

func writeGenesis(genesis *core.Genesis, file string) error {
	data, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(file, data, 0644), "cannot write genesis file %s", file)
}

// generatorKey is the fixed key signing generated transactions and receiving
// the block rewards.
func generatorKey() (*ecdsa.PrivateKey, error) {
	return crypto.ToECDSA(crypto.Keccak256([]byte("snapshot generate")))
}
