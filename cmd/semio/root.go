package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/semio/internal/config"
	"github.com/chazu/semio/internal/logging"
	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/engine"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cli carries the state shared by all subcommands once the persistent
// flags are parsed.
type cli struct {
	configPath string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{log: zap.NewNop()}

	root := &cobra.Command{
		Use:   "semio",
		Short: "Work with kits of connected pieces",
		Long: `semio reads kits (YAML documents or kit scripts) and works on their
designs: pieces joined port to port, placed by walking their connections.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logger, err := logging.New(cfg.Logging, c.verbose)
			if err != nil {
				return err
			}
			c.log = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.log.Sync()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		c.flattenCmd(),
		c.diffCmd(),
		c.clusterCmd(),
		c.explodeCmd(),
		c.candidatesCmd(),
		c.evalCmd(),
		c.meshCmd(),
		c.importCmd(),
		c.exportCmd(),
		c.kitsCmd(),
		c.watchCmd(),
	)
	return root
}

// isScript reports whether path holds a kit script rather than YAML.
func isScript(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lisp", ".zy", ".semio":
		return true
	}
	return false
}

func (c *cli) newEngine() (*engine.Engine, error) {
	timeout, err := c.cfg.EvalTimeout()
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(engine.WithTimeout(timeout)), nil
}

// loadKit reads a YAML kit or evaluates a kit script.
func (c *cli) loadKit(path string) (*catalog.Kit, error) {
	if !isScript(path) {
		return catalog.LoadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	eng, err := c.newEngine()
	if err != nil {
		return nil, err
	}
	k, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		return nil, fmt.Errorf("%s: %w", path, evalErrs[0])
	}
	return k, nil
}

// pickDesign finds the named design, or the only design when name is
// empty.
func pickDesign(k *catalog.Kit, name string) (*design.Design, error) {
	if name != "" {
		return k.FindDesign(name)
	}
	if len(k.Designs) != 1 {
		return nil, fmt.Errorf("kit %s has %d designs; name one", k.Name, len(k.Designs))
	}
	return &k.Designs[0], nil
}

// writeKit encodes k to path, or to w when path is empty or "-".
func writeKit(w io.Writer, path string, k *catalog.Kit) error {
	if path == "" || path == "-" {
		return catalog.Encode(w, k)
	}
	return catalog.SaveFile(path, k)
}

func pieceIDs(args []string) []design.PieceID {
	ids := make([]design.PieceID, len(args))
	for i, a := range args {
		ids[i] = design.PieceID(a)
	}
	return ids
}
