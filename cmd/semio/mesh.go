package main

import (
	"encoding/json"
	"os"

	"github.com/chazu/semio/pkg/flatten"
	"github.com/chazu/semio/pkg/kernel/sdfx"
	"github.com/chazu/semio/pkg/tessellate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) meshCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "mesh KIT [DESIGN]",
		Short: "Tessellate a design into preview meshes (JSON)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}
			name := ""
			if len(args) > 1 {
				name = args[1]
			}
			d, err := pickDesign(k, name)
			if err != nil {
				return err
			}
			p := flatten.Flatten(d, k)
			if err := p.Err(); err != nil {
				return err
			}

			opts := tessellate.DefaultOptions()
			opts.Workers = c.cfg.Preview.Workers
			meshes, err := tessellate.Tessellate(cmd.Context(), p, k, sdfx.New(sdfx.WithCells(c.cfg.Preview.Cells)), opts)
			if err != nil {
				return err
			}
			c.log.Info("meshed", zap.String("design", d.ID().String()), zap.Int("meshes", len(meshes)))

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return json.NewEncoder(w).Encode(meshes)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the meshes here instead of stdout")
	return cmd
}
