package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/angeraphael/parrainage/core"
	"github.com/angeraphael/parrainage/core/referral"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errNoToken = errors.New("an API token is required")
)

type commandLine struct {
	svc *referral.Service
	in  int // file descriptor the token is prompted on
	out io.Writer
}

func newRootCmd(cli *commandLine) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:           "parrainage",
		Short:         "Inspect your referral tree",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&token, "token", "", "API token (prompted when empty)")

	cmd.AddCommand(
		newTreeCmd(cli, &token),
		newStatsCmd(cli, &token),
	)
	return cmd
}

func newTreeCmd(cli *commandLine, token *string) *cobra.Command {
	var (
		depth     int
		expandAll bool
	)

	cmd := &cobra.Command{
		Use:   "arbre",
		Short: "Print the referral tree as an outline",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := cli.load(cmd.Context(), token, depth)
			if err != nil {
				return err
			}
			if expandAll {
				snap.ExpandAll()
			}
			printStats(cli.out, snap)
			printOutline(cli.out, snap.View())
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "profondeur", core.Conf.Upstream.TreeDepth, "Generations to fetch")
	cmd.Flags().BoolVar(&expandAll, "tout", false, "Expand every node")
	return cmd
}

func newStatsCmd(cli *commandLine, token *string) *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print the referral tree statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := cli.load(cmd.Context(), token, depth)
			if err != nil {
				return err
			}
			printStats(cli.out, snap)
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "profondeur", core.Conf.Upstream.TreeDepth, "Generations to fetch")
	return cmd
}

func (cli *commandLine) load(ctx context.Context, token *string, depth int) (*referral.Snapshot, error) {
	if *token == "" {
		_, _ = fmt.Fprint(os.Stderr, "Enter API token:")
		tok, err := readPasswordFunc(cli.in)
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, errors.Wrap(err, "reading token")
		}
		*token = strings.TrimSpace(string(tok))
		if *token == "" {
			return nil, errNoToken
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return cli.svc.LoadTree(ctx, *token, depth)
}
