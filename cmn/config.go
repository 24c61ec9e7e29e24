package cmn

import (
	"flag"
	"sync/atomic"
)

// Config holds every knob the emulator's components read at run time. It is
// held behind an atomic.Value the way the teacher's `cmn.GCO` (global config
// owner) holds `cmn.Config` — readers call Get() and never mutate the
// returned value; updates happen via BeginUpdate/CommitUpdate.
type Config struct {
	DataDir    string
	ListenAddr string
	Region     string
	Endpoint   string // base URL used to synthesize queue URLs etc.
	IDSeed     uint64

	// LB data-plane limits (spec.md §5 "Cancellation and timeouts").
	LBMaxBodyBytes    int64
	LBForwardTimeoutS int
}

// DefaultConfig returns the configuration the binary starts with absent any
// flag overrides.
func DefaultConfig() *Config {
	return &Config{
		DataDir:           "./data",
		ListenAddr:        ":4566",
		Region:            DefaultRegion,
		Endpoint:          "http://localhost:4566",
		IDSeed:            1,
		LBMaxBodyBytes:    10 << 20, // 10 MiB, per spec.md §5
		LBForwardTimeoutS: 30,
	}
}

// globalConfigOwner mirrors the teacher's GCO (Global Config Owner)
// singleton: one atomically-swapped pointer, read far more often than
// written.
type globalConfigOwner struct {
	v atomic.Value
}

func (o *globalConfigOwner) Get() *Config {
	c, _ := o.v.Load().(*Config)
	if c == nil {
		return DefaultConfig()
	}
	return c
}

func (o *globalConfigOwner) Put(c *Config) { o.v.Store(c) }

// GCO is the process-wide configuration owner. cmd/cloudemu populates it
// once at startup from flags; every other package reads through it instead
// of threading a *Config everywhere by hand.
var GCO = &globalConfigOwner{}

// RegisterFlags wires Config fields to the standard flag package, matching
// the teacher's own preference for `flag` over a CLI framework (the CLI
// itself is out of scope per spec.md's Non-goals).
func RegisterFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.DataDir, "data-dir", c.DataDir, "directory for metadata.db and content-addressed blobs")
	fs.StringVar(&c.ListenAddr, "listen", c.ListenAddr, "HTTP listen address")
	fs.StringVar(&c.Region, "region", c.Region, "default region reported in synthesized ARNs")
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "base URL used to synthesize queue URLs")
	fs.Uint64Var(&c.IDSeed, "id-seed", c.IDSeed, "seed for the short-id generator")
}
