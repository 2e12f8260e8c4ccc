package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *cli) evalCmd() *cobra.Command {
	var out string
	var strict bool
	cmd := &cobra.Command{
		Use:   "eval SCRIPT",
		Short: "Evaluate a kit script and print the kit as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			eng, err := c.newEngine()
			if err != nil {
				return err
			}
			res, err := eng.Run(string(src))
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			for _, e := range res.Errors {
				fmt.Fprintf(stderr, "%s: %s\n", args[0], e.Error())
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("%s: %d evaluation errors", args[0], len(res.Errors))
			}
			for _, w := range res.Warnings {
				fmt.Fprintf(stderr, "%s: warning: %s\n", args[0], w)
			}
			c.log.Debug("evaluated",
				zap.String("kit", res.Kit.Name),
				zap.Int("types", len(res.Kit.Types)),
				zap.Int("designs", len(res.Kit.Designs)),
				zap.Int("warnings", len(res.Warnings)))
			if strict && len(res.Warnings) > 0 {
				return fmt.Errorf("%s: %d warnings", args[0], len(res.Warnings))
			}
			return writeKit(cmd.OutOrStdout(), out, res.Kit)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the kit here instead of stdout")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat warnings as errors")
	return cmd
}
