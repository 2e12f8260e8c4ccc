package main

import (
	"fmt"
	"strings"

	"github.com/chazu/semio/pkg/catalog"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/geom"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// placedPiece is one line of flatten output.
type placedPiece struct {
	Piece  string      `yaml:"piece"`
	Plane  geom.Plane  `yaml:"plane"`
	Center *geom.Coord `yaml:"center,omitempty"`
	Parent string      `yaml:"parent,omitempty"`
}

// flattenReport is the flatten output of one design.
type flattenReport struct {
	Design   string        `yaml:"design"`
	Pieces   []placedPiece `yaml:"pieces"`
	Unplaced []string      `yaml:"unplaced,omitempty"`
	Errors   []string      `yaml:"errors,omitempty"`
}

func report(d *design.Design, p *flatten.Placement) flattenReport {
	r := flattenReport{Design: d.ID().String()}
	p.Walk(func(path []design.PieceID, piece *design.Piece, world geom.Plane) {
		parts := make([]string, len(path))
		for i, id := range path {
			parts[i] = string(id)
		}
		pp := placedPiece{Piece: strings.Join(parts, "/"), Plane: world}
		if len(path) == 1 {
			if c, ok := p.Center(piece.ID); ok {
				pp.Center = &c
			}
			if parent, ok := p.Parents[piece.ID]; ok {
				pp.Parent = string(parent.Piece)
			}
		}
		r.Pieces = append(r.Pieces, pp)
	})
	for _, id := range p.Unplaced() {
		r.Unplaced = append(r.Unplaced, string(id))
	}
	for _, e := range p.Errors {
		r.Errors = append(r.Errors, e.Error())
	}
	return r
}

// flattenAll flattens every design of k concurrently. Reports keep the
// kit's design order.
func flattenAll(k *catalog.Kit) ([]flattenReport, error) {
	reports := make([]flattenReport, len(k.Designs))
	var g errgroup.Group
	for i := range k.Designs {
		g.Go(func() error {
			d := &k.Designs[i]
			reports[i] = report(d, flatten.Flatten(d, k))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (c *cli) flattenCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "flatten KIT [DESIGN]",
		Short: "Place every piece of a design and print its world plane",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}

			var reports []flattenReport
			if all {
				if reports, err = flattenAll(k); err != nil {
					return err
				}
			} else {
				name := ""
				if len(args) > 1 {
					name = args[1]
				}
				d, err := pickDesign(k, name)
				if err != nil {
					return err
				}
				reports = []flattenReport{report(d, flatten.Flatten(d, k))}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			failed := 0
			for _, r := range reports {
				if err := enc.Encode(r); err != nil {
					return err
				}
				if len(r.Errors) > 0 {
					failed++
				}
				c.log.Debug("flattened",
					zap.String("design", r.Design),
					zap.Int("placed", len(r.Pieces)),
					zap.Int("unplaced", len(r.Unplaced)))
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d designs did not flatten cleanly", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "flatten every design of the kit")
	return cmd
}
