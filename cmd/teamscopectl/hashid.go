package main

import (
	"fmt"
	"strconv"

	"github.com/dimitrije/teamscope/internal/config"
	"github.com/dimitrije/teamscope/internal/hashid"
	"github.com/spf13/cobra"
)

func newHashidCmd() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "hashid",
		Short: "Convert between primary keys and external identifiers",
	}
	cmd.PersistentFlags().StringVar(&prefix, "prefix", "", "entity prefix, e.g. usr_, team_, role_")

	encode := &cobra.Command{
		Use:   "encode <id>",
		Short: "Print the identifier for a primary key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}
			codec, err := loadCodec()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), codec.EncodePrefixed(prefix, id))
			return nil
		},
	}

	decode := &cobra.Command{
		Use:   "decode <value>",
		Short: "Print the primary key behind an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := loadCodec()
			if err != nil {
				return err
			}
			id, err := codec.Resolve(prefix, args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}

	cmd.AddCommand(encode, decode)
	return cmd
}

func loadCodec() (*hashid.Codec, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return hashid.New(cfg.HashidSalt, cfg.HashidMinLength)
}
