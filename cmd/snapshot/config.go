package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/snapshot"
)

const tomlConfigVersion = "1.0.0"

type snapshotConfig struct {
	Version  string
	General  generalConfig
	Snapshot chunkConfig
	Log      logConfig
	Metrics  metricsConfig
}

type generalConfig struct {
	DataDir string
	// Genesis is a JSON genesis file. Empty means the default genesis.
	Genesis string
}

type chunkConfig struct {
	ChunkSize       string
	MaxChunkSize    string
	RetentionBlocks uint64
	SealVerifyRate  float64
	Workers         int
	Codec           string
	Loose           bool
}

type logConfig struct {
	Folder     string
	FileName   string
	RotateSize int
	Verbosity  int
}

type metricsConfig struct {
	Enabled bool
	Addr    string
}

var defaultConfig = snapshotConfig{
	Version: tomlConfigVersion,
	General: generalConfig{
		DataDir: "./",
	},
	Snapshot: chunkConfig{
		ChunkSize:       snapshot.PreferredChunkSize.String(),
		MaxChunkSize:    snapshot.DefaultMaxChunkSize.String(),
		RetentionBlocks: snapshot.SnapshotBlocks,
		SealVerifyRate:  snapshot.SealVerifyRate,
		Workers:         snapshot.DefaultConfig().Workers,
		Codec:           snapshot.CodecSnappy,
		Loose:           false,
	},
	Log: logConfig{
		Folder:     "",
		FileName:   "snapshot.log",
		RotateSize: 100,
		Verbosity:  3,
	},
	Metrics: metricsConfig{
		Enabled: false,
		Addr:    "127.0.0.1:9900",
	},
}

func getDefaultSnapshotConfigCopy() snapshotConfig {
	config := defaultConfig
	return config
}

const (
	codecSnappy = snapshot.CodecSnappy
	codecZstd   = snapshot.CodecZstd
)

// toSnapshotConfig parses the human readable sizes of the config.
func (c chunkConfig) toSnapshotConfig() (snapshot.Config, error) {
	chunkSize, err := datasize.ParseString(c.ChunkSize)
	if err != nil {
		return snapshot.Config{}, errors.Wrapf(err, "invalid chunk size %q", c.ChunkSize)
	}
	maxChunkSize, err := datasize.ParseString(c.MaxChunkSize)
	if err != nil {
		return snapshot.Config{}, errors.Wrapf(err, "invalid max chunk size %q", c.MaxChunkSize)
	}
	return snapshot.Config{
		ChunkSize:       chunkSize,
		RetentionBlocks: c.RetentionBlocks,
		SealVerifyRate:  c.SealVerifyRate,
		Workers:         c.Workers,
		Codec:           c.Codec,
		MaxChunkSize:    maxChunkSize,
	}, nil
}

func validateSnapshotConfig(config snapshotConfig) error {
	if config.Version != tomlConfigVersion {
		return fmt.Errorf("unsupported config version %q, want %q", config.Version, tomlConfigVersion)
	}
	accepts := []string{codecSnappy, codecZstd}
	if err := checkStringAccepted("--codec", config.Snapshot.Codec, accepts); err != nil {
		return err
	}
	sc, err := config.Snapshot.toSnapshotConfig()
	if err != nil {
		return err
	}
	return sc.Validate()
}

func checkStringAccepted(flag string, val string, accepts []string) error {
	for _, accept := range accepts {
		if val == accept {
			return nil
		}
	}
	acceptsStr := strings.Join(accepts, ", ")
	return fmt.Errorf("unknown arg for %s: %s (%v)", flag, val, acceptsStr)
}

func loadSnapshotConfig(file string) (snapshotConfig, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return snapshotConfig{}, err
	}

	config := getDefaultSnapshotConfigCopy()
	if err := toml.Unmarshal(b, &config); err != nil {
		return snapshotConfig{}, err
	}
	return config, nil
}

func writeSnapshotConfigToFile(config snapshotConfig, file string) error {
	b, err := toml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(file, b, 0644)
}
