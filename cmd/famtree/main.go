// Command famtree edits a genealogy tree stored in the local profile and
// syncs it with the remote tree service.
package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"famtree/internal/ui"
)

var version = "0.4.0"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err != nil {
		ui.Bad.Fprintf(stderr, "famtree: %s\n", describe(err))
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "famtree",
		Short: "Build and share your family tree",
		Long: ui.Brand.Sprint(ui.Tree+" famtree") + ": build your family tree from the terminal\n" +
			ui.Subtle.Sprint("Add relatives, track progress and sync with your account"),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.persistErr
		},
	}
	root.SetVersionTemplate("famtree {{ .Version }}\n")
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $XDG_CONFIG_HOME/famtree/config.toml)")

	root.AddGroup(
		&cobra.Group{ID: "tree", Title: "Editing:"},
		&cobra.Group{ID: "sync", Title: "Sync and account:"},
		&cobra.Group{ID: "files", Title: "Files and backups:"},
	)
	for _, c := range []*cobra.Command{initCmd(a), showCmd(a), addCmd(a), setCmd(a), rmCmd(a),
		statsCmd(a), layoutCmd(a), timelineCmd(a), gestureCmd(a)} {
		c.GroupID = "tree"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{saveCmd(a), loadCmd(a), listCmd(a), watchCmd(a),
		loginCmd(a), registerCmd(a), logoutCmd(a), whoamiCmd(a), oauthURLCmd(a)} {
		c.GroupID = "sync"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{exportCmd(a), importCmd(a), backupCmd(a), backupsCmd(a), restoreCmd(a)} {
		c.GroupID = "files"
		root.AddCommand(c)
	}
	return root
}
