// Package config parses lattice's process configuration: protocol
// parameters, data directory and log level. Grounded on kaspad's
// config package, which parses CLI flags and an INI config file
// through github.com/jessevdk/go-flags.
package config

import (
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/latticenet/lattice/internal/dagconfig"
)

// DefaultDataDir is used when --datadir is not supplied.
const DefaultDataDir = "./lattice-data"

// Config holds the process-wide configuration of a latticed node.
type Config struct {
	DataDir string `short:"b" long:"datadir" description:"Directory to store the DAG database"`
	LogLevel string `long:"loglevel" description:"Logging level: trace, debug, info, warn, error, critical, off" default:"info"`

	K                        uint8   `long:"k" description:"k-cluster anti-cone bound" default:"18"`
	MaxParents               int     `long:"maxparents" description:"Maximum parents per block" default:"10"`
	TargetSlotDurationMS     int64   `long:"targetslotms" description:"Nominal interval between slots, in milliseconds" default:"2000"`
	EpochLength              uint64  `long:"epochlength" description:"Slots per VRF epoch" default:"1024"`
	PruningDepth             uint64  `long:"pruningdepth" description:"Blocks below head height eligible for pruning" default:"115200"`
	ExpectedProposersPerSlot float64 `long:"expectedproposers" description:"Expected number of eligible proposers per slot" default:"1"`
}

// Parse parses os.Args (minus argv[0]) into a Config, applying
// defaults the same way kaspad's config.Load does.
func Parse(args []string) (*Config, error) {
	cfg := &Config{DataDir: DefaultDataDir}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, errors.Wrap(err, "parsing command-line arguments")
	}
	return cfg, nil
}

// ProtocolParams converts the parsed configuration into the
// dagconfig.Params consumed by the core's consensus components.
func (c *Config) ProtocolParams() *dagconfig.Params {
	return &dagconfig.Params{
		K:                           dagconfig.KType(c.K),
		MaxParents:                  c.MaxParents,
		TargetSlotDuration:          time.Duration(c.TargetSlotDurationMS) * time.Millisecond,
		EpochLength:                 c.EpochLength,
		PruningDepth:                c.PruningDepth,
		ExpectedProposersPerSlot:    c.ExpectedProposersPerSlot,
		TimestampDeviationTolerance: dagconfig.MainnetParams.TimestampDeviationTolerance,
	}
}
