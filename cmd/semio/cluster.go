package main

import (
	"fmt"
	"strings"

	"github.com/chazu/semio/pkg/cluster"
	"github.com/chazu/semio/pkg/design"
	"github.com/chazu/semio/pkg/flatten"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) clusterCmd() *cobra.Command {
	var name, out string
	cmd := &cobra.Command{
		Use:   "cluster KIT DESIGN PIECE...",
		Short: "Contract connected pieces into one cluster node",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}
			d, err := k.FindDesign(args[1])
			if err != nil {
				return err
			}
			res, err := cluster.Cluster(d, pieceIDs(args[2:]), flatten.Flatten(d, k), cluster.Options{
				Name:        name,
				MaxExternal: c.cfg.Cluster.MaxExternal,
				Types:       k,
			})
			if err != nil {
				return err
			}
			c.log.Info("clustered",
				zap.String("design", d.ID().String()),
				zap.String("node", string(res.Node)),
				zap.Int("pieces", len(args)-2))
			k.PutDesign(res.Design)
			return writeKit(cmd.OutOrStdout(), out, k)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name of the clustered sub-design")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the kit here instead of stdout")
	return cmd
}

func (c *cli) explodeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "explode KIT DESIGN NODE",
		Short: "Expand a cluster node back into its pieces",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}
			d, err := k.FindDesign(args[1])
			if err != nil {
				return err
			}
			exploded, err := cluster.Explode(d, design.PieceID(args[2]))
			if err != nil {
				return err
			}
			c.log.Info("exploded", zap.String("design", d.ID().String()), zap.String("node", args[2]))
			k.PutDesign(exploded)
			return writeKit(cmd.OutOrStdout(), out, k)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the kit here instead of stdout")
	return cmd
}

func (c *cli) candidatesCmd() *cobra.Command {
	var maxExternal int
	cmd := &cobra.Command{
		Use:   "candidates KIT DESIGN [PIECE...]",
		Short: "List groups that could be clustered, and nodes that could be exploded",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}
			d, err := k.FindDesign(args[1])
			if err != nil {
				return err
			}
			selection := pieceIDs(args[2:])
			if len(selection) == 0 {
				for _, p := range d.Pieces {
					selection = append(selection, p.ID)
				}
			}
			if !cmd.Flags().Changed("max-external") {
				maxExternal = c.cfg.Cluster.MaxExternal
			}

			w := cmd.OutOrStdout()
			for _, group := range cluster.Candidates(d, selection, maxExternal) {
				fmt.Fprintf(w, "cluster: %s\n", joinIDs(group))
			}
			for _, id := range cluster.Explodable(d) {
				fmt.Fprintf(w, "explode: %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxExternal, "max-external", 0, "bound on external connections (0 disables)")
	return cmd
}

func joinIDs(ids []design.PieceID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, " ")
}
