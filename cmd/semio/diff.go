package main

import (
	"fmt"

	"github.com/chazu/semio/pkg/diff"
	"github.com/spf13/cobra"
)

func (c *cli) diffCmd() *cobra.Command {
	var (
		against string
		contextLines int
	)
	cmd := &cobra.Command{
		Use:   "diff KIT BASE PROPOSED",
		Short: "Compare two designs",
		Long: `diff prints a change summary followed by a unified diff of the two
designs. With --against, PROPOSED is looked up in another kit.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := c.loadKit(args[0])
			if err != nil {
				return err
			}
			other := k
			if against != "" {
				if other, err = c.loadKit(against); err != nil {
					return err
				}
			}
			base, err := k.FindDesign(args[1])
			if err != nil {
				return err
			}
			proposed, err := other.FindDesign(args[2])
			if err != nil {
				return err
			}

			patch := diff.Compute(base, proposed)
			out := cmd.OutOrStdout()
			if patch.IsEmpty() {
				fmt.Fprintln(out, "no changes")
			} else {
				fmt.Fprintln(out, patch.Summary())
			}
			text, err := diff.Report(base, proposed, contextLines)
			if err != nil {
				return err
			}
			fmt.Fprint(out, text)
			return nil
		},
	}
	cmd.Flags().StringVar(&against, "against", "", "kit holding the proposed design")
	cmd.Flags().IntVar(&contextLines, "context", diff.DefaultContext, "context lines per hunk")
	return cmd
}
