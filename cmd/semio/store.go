package main

import (
	"fmt"

	"github.com/chazu/semio/pkg/store"
	"github.com/spf13/cobra"
)

func (c *cli) openStore() (*store.Store, error) {
	return store.Open(c.cfg.Store.Path, store.WithLogger(c.log))
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import KIT...",
		Short: "Store kits in the local database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			for _, path := range args {
				k, err := c.loadKit(path)
				if err != nil {
					return err
				}
				if err := s.SaveKit(cmd.Context(), k); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s %s\n", k.Name, k.Version)
			}
			return nil
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var version, out string
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a stored kit as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			k, err := s.LoadKit(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			return writeKit(cmd.OutOrStdout(), out, k)
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "kit version")
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the kit here instead of stdout")
	return cmd
}

func (c *cli) kitsCmd() *cobra.Command {
	var remove bool
	cmd := &cobra.Command{
		Use:   "kits [NAME [VERSION]]",
		Short: "List stored kits, or delete one with --delete",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if remove {
				if len(args) == 0 {
					return fmt.Errorf("--delete needs a kit name")
				}
				version := ""
				if len(args) > 1 {
					version = args[1]
				}
				return s.DeleteKit(cmd.Context(), args[0], version)
			}

			infos, err := s.ListKits(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, info := range infos {
				if len(args) > 0 && info.Name != args[0] {
					continue
				}
				fmt.Fprintf(w, "%-24s %-10s %3d types %3d designs  %s\n",
					info.Name, info.Version, info.Types, info.Designs, info.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the named kit")
	return cmd
}
