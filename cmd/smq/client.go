package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/snehjoshi/smq/pkg/client"
)

func newClient(cmd *cobra.Command) (*client.Client, error) {
	server, err := cmd.Flags().GetString("server")
	if err != nil {
		return nil, err
	}
	auth, err := cmd.Flags().GetString("auth")
	if err != nil {
		return nil, err
	}
	return client.New(server, client.WithAuthKey(auth)), nil
}

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <channel> [payload]",
		Short: "Push a message onto a channel (payload from stdin when omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 2 {
				payload = []byte(args[1])
			} else if payload, err = io.ReadAll(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			if err := c.Push(cmd.Context(), args[0], payload); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newPopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pop <channel>",
		Short: "Pop the oldest message from a channel and write it to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			msg, err := c.Pop(cmd.Context(), args[0])
			if errors.Is(err, client.ErrNoMessage) {
				return fmt.Errorf("no message on channel %q", args[0])
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(msg)
			return err
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the server's capacity settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(cmd)
			if err != nil {
				return err
			}
			info, err := c.Info(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), info)
			return nil
		},
	}
}
