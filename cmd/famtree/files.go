package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"famtree/internal/persist"
	"famtree/internal/ui"
)

func exportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the tree to a JSON file (" + persist.ExportFileName + " by default, - for stdout)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := persist.ExportFileName
			if len(args) == 1 {
				target = args[0]
			}
			if target == "-" {
				return a.adapter.Export(cmd.Context(), a.out, a.editor.Snapshot())
			}
			f, err := os.Create(target)
			if err != nil {
				return err
			}
			if err := a.adapter.Export(cmd.Context(), f, a.editor.Snapshot()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s exported to %s\n", ui.StatusIcon(true), target)
			return nil
		},
	}
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the tree with an exported JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			tree, err := a.adapter.Import(cmd.Context(), r)
			if err != nil {
				return err
			}
			if err := a.editor.Replace(tree); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s imported %d people\n", ui.StatusIcon(true), len(tree.Nodes))
			return nil
		},
	}
}

func backupCmd(a *app) *cobra.Command {
	var (
		compress bool
		share    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "backup [name]",
		Short: "Store a copy of the tree in the archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.useArchive(ctx); err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			info, err := a.adapter.Backup(ctx, name, a.editor.Snapshot(), compress)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s %s (%s)\n", ui.StatusIcon(true), info.Key, humanize.Bytes(uint64(info.Size)))
			if share > 0 {
				u, err := a.adapter.BackupURL(ctx, info.Key, share)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, "  "+u)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd-compress the backup")
	cmd.Flags().DurationVar(&share, "share", 0, "also print a link valid for this long")
	return cmd
}

func backupsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List archived backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.useArchive(cmd.Context()); err != nil {
				return err
			}
			list, err := a.adapter.Backups(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(a.out, "  No backups yet. Run `famtree backup`.")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, info := range list {
				rows = append(rows, []string{
					strings.TrimPrefix(info.Key, persist.BackupPrefix),
					info.Metadata["nodes"],
					humanize.Bytes(uint64(info.Size)),
					humanize.Time(info.LastModified),
				})
			}
			ui.Table(a.out, []string{"Key", "People", "Size", "Stored"}, rows)
			return nil
		},
	}
}

func restoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Replace the tree with an archived backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.useArchive(cmd.Context()); err != nil {
				return err
			}
			tree, err := a.adapter.RestoreBackup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := a.editor.Replace(tree); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s restored %s (%d people)\n", ui.StatusIcon(true), args[0], len(tree.Nodes))
			return nil
		},
	}
}
