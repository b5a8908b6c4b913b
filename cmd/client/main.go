package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/iudanet/gophcollab/internal/client/cli"
	"github.com/iudanet/gophcollab/internal/client/collab"
	"github.com/iudanet/gophcollab/internal/client/iocli"
	"github.com/iudanet/gophcollab/internal/models"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// GOPHCOLLAB_SERVER, GOPHCOLLAB_TOKEN, GOPHCOLLAB_MODE ...
	v := viper.New()
	v.SetEnvPrefix("GOPHCOLLAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "gophcollab",
		Short:         "Command line client of the collaboration server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "server URL")
	flags.String("mode", string(models.ModeCRDT), "server protocol: crdt or plain")
	flags.String("token", "", "gatekeeper grant")
	flags.String("user-id", "", "user id sent when the server trusts headers")
	flags.String("user-name", "", "display name sent when the server trusts headers")
	flags.String("user-image", "", "avatar URL sent when the server trusts headers")
	for _, name := range []string{"server", "mode", "token", "user-id", "user-name", "user-image"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	newCli := func() (*cli.Cli, error) {
		client := collab.NewClient(v.GetString("server"),
			collab.WithToken(v.GetString("token")),
			collab.WithIdentity(models.Identity{
				UserID:    v.GetString("user-id"),
				UserName:  v.GetString("user-name"),
				UserImage: v.GetString("user-image"),
			}),
		)
		return cli.New(iocli.NewStdio(), client, models.Mode(strings.ToLower(v.GetString("mode"))))
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "cat KEY",
			Short: "Print the current document content",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newCli()
				if err != nil {
					return err
				}
				return c.RunCat(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "info KEY",
			Short: "Show the server's snapshot of a document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newCli()
				if err != nil {
					return err
				}
				return c.RunInfo(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "tail KEY",
			Short: "Print the document and follow edits of other clients",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := newCli()
				if err != nil {
					return err
				}
				return c.RunTail(cmd.Context(), args[0])
			},
		},
		newInsertCmd(newCli),
		newVersionCmd(),
	)

	return root
}

func newInsertCmd(newCli func() (*cli.Cli, error)) *cobra.Command {
	var at int

	cmd := &cobra.Command{
		Use:   "insert KEY [TEXT]",
		Short: "Insert text into a document (stdin when TEXT is omitted)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newCli()
			if err != nil {
				return err
			}
			opts := cli.InsertOptions{At: at}
			if len(args) == 2 {
				opts.Text = args[1]
			}
			return c.RunInsert(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().IntVar(&at, "at", -1, "insert position in UTF-16 units, negative appends")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "GophCollab Client\n")
			fmt.Fprintf(out, "Version:    %s\n", Version)
			fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
			fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		},
	}
}
