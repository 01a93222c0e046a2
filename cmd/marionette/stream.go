package main

import (
	"time"

	"github.com/arloliu/go-marionette/stream"
	"github.com/spf13/cobra"
)

func newStreamCmd(flags *rootFlags) *cobra.Command {
	var drain time.Duration

	cmd := &cobra.Command{
		Use:   "stream <script.toml>",
		Short: "Run a paced line script while logging everything the fixture prints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := stream.LoadScript(args[0])
			if err != nil {
				return err
			}

			sess, l, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			return stream.RunSession(cmd.Context(), sess, script,
				stream.WithLogger(l),
				stream.WithDrain(drain),
			)
		},
	}

	cmd.Flags().DurationVar(&drain, "drain", time.Second, "keep reading this long after the last line")

	return cmd
}
