package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"famtree/internal/persist"
	"famtree/internal/ui"
)

func saveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Save the tree to your account now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.adapter.SaveNow(cmd.Context(), a.editor.Snapshot())
			return err
		},
	}
}

func loadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <tree-id>",
		Short: "Replace the local tree with one from your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("tree id: %w", err)
			}
			tree, err := a.adapter.LoadRemote(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s loaded tree %d (%d people)\n", ui.StatusIcon(true), id, len(tree.Nodes))
			return nil
		},
	}
}

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the trees saved in your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trees, err := a.adapter.ListRemote(cmd.Context())
			if err != nil {
				return err
			}
			if len(trees) == 0 {
				fmt.Fprintln(a.out, "  No saved trees yet. Run `famtree save`.")
				return nil
			}
			current, _ := a.local.TreeID(cmd.Context())
			rows := make([][]string, 0, len(trees))
			for _, t := range trees {
				mark := ""
				if t.ID == current {
					mark = "*"
				}
				rows = append(rows, []string{mark + strconv.FormatInt(t.ID, 10), t.Name, strconv.Itoa(t.NodesCount), t.UpdatedAt})
			}
			ui.Table(a.out, []string{"ID", "Title", "People", "Updated"}, rows)
			return nil
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	var (
		addr     string
		poll     time.Duration
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Autosave local changes to your account and serve /metrics",
		Long: "watch polls the local profile, schedules a debounced save whenever the tree\n" +
			"changes and exposes Prometheus metrics. Pending work is flushed on exit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			every, err := a.useAutosave(interval)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			mux := http.NewServeMux()
			mux.Handle("/metrics", a.metrics.Handler())
			srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("metrics server", "error", err)
				}
			}()
			fmt.Fprintf(a.out, "  watching (autosave every %s, metrics on http://%s/metrics)\n", every, ln.Addr())

			err = watchLoop(ctx, a, poll)
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if ferr := a.adapter.Flush(shutdownCtx); ferr != nil {
				a.logger.Warn("final flush", "error", ferr)
			}
			return errors.Join(err, srv.Shutdown(shutdownCtx))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9464", "metrics listen address")
	cmd.Flags().DurationVar(&poll, "poll", 2*time.Second, "how often to check the local profile")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override the autosave interval")
	return cmd
}

// watchLoop schedules an autosave each time the stored tree changes.
func watchLoop(ctx context.Context, a *app, poll time.Duration) error {
	saver := a.adapter.Autosaver()
	last := persist.Fingerprint(a.editor.Snapshot())
	saver.Schedule(a.editor.Snapshot())
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tree := a.adapter.Restore(ctx)
			if fp := persist.Fingerprint(tree); fp != last {
				last = fp
				a.logger.Debug("tree changed", "nodes", len(tree.Nodes))
				saver.Schedule(tree)
			}
		}
	}
}
