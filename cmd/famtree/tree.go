package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"famtree/internal/analytics"
	"famtree/internal/core"
	"famtree/internal/layout"
	"famtree/internal/persist"
	"famtree/internal/ui"
	"famtree/internal/viewport"
	"famtree/pkg/family"
)

func initCmd(a *app) *cobra.Command {
	var (
		form  core.OnboardingForm
		sex   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Start a tree from your name and your parents' names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current := a.editor.Snapshot()
			if len(current.Nodes) > 1 && !force {
				return fmt.Errorf("tree already has %d people; use --force to start over", len(current.Nodes))
			}
			if sex != "" {
				form.Gender = family.Gender(sex)
				if !form.Gender.Valid() {
					return fmt.Errorf("invalid gender %q", sex)
				}
			}
			root, ok := current.Root()
			if !ok {
				root = family.SeedTree().Nodes[0]
			}
			wizard := core.NewOnboarding()
			wizard.Form = form
			if form.Gender == "" {
				wizard.Form.Gender = family.Male
			}
			wizard.Skip()
			tree, _ := wizard.Next(root)
			if err := a.editor.Replace(tree); err != nil {
				return err
			}
			ui.Heading(a.out, "tree initialised")
			printPeople(a, tree)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.FirstName, "first", "", "your first name")
	cmd.Flags().StringVar(&form.LastName, "last", "", "your last name")
	cmd.Flags().StringVar(&sex, "gender", "", "male or female")
	cmd.Flags().StringVar(&form.FatherName, "father", "", "father's first name")
	cmd.Flags().StringVar(&form.MotherName, "mother", "", "mother's first name")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing tree")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the people in the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree := a.editor.Snapshot()
			if asJSON {
				return persist.Encode(a.out, tree)
			}
			printPeople(a, tree)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the export document")
	return cmd
}

func printPeople(a *app, tree family.Tree) {
	rows := make([][]string, 0, len(tree.Nodes))
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		name := family.FullName(n)
		if name == "" {
			name = ui.Subtle.Sprint("(unnamed)")
		}
		died := ""
		if !n.IsAlive {
			died = n.DeathDate
			if died == "" {
				died = "†"
			}
		}
		rows = append(rows, []string{n.ID, name, string(n.Gender), n.BirthDate, died, string(n.Relation)})
	}
	ui.Table(a.out, []string{"ID", "Name", "Gender", "Born", "Died", "Added as"}, rows)
	fmt.Fprintf(a.out, "\n  %d people, %d links\n", len(tree.Nodes), len(tree.Edges))
}

func addCmd(a *app) *cobra.Command {
	var sex string
	cmd := &cobra.Command{
		Use:   "add <source-id> <parent|child|sibling|spouse>",
		Short: "Add a relative of an existing person",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, ok := family.ParseRelation(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnknownRelation, args[1])
			}
			var hint *family.Gender
			if sex != "" {
				g := family.Gender(sex)
				if !g.Valid() {
					return fmt.Errorf("invalid gender %q", sex)
				}
				hint = &g
			}
			node, err := a.editor.AddRelative(cmd.Context(), args[0], rel, hint)
			if err != nil {
				return err
			}
			a.tracker.Send(cmd.Context(), analytics.PersonAdded, map[string]any{"relation": string(rel)})
			fmt.Fprintf(a.out, "  %s added %s %s (%s)\n", ui.StatusIcon(true), rel, ui.Info.Sprint(node.ID), node.Gender)
			return nil
		},
	}
	cmd.Flags().StringVar(&sex, "gender", "", "gender of a new parent (male or female)")
	return cmd
}

func setCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Edit one field of a person (firstName, birthDate, isAlive, ...)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := a.editor.SetField(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s %s.%s = %q\n", ui.StatusIcon(true), node.ID, args[1], args[2])
			return nil
		},
	}
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a person and every link to them",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.editor.DeleteNode(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "  %s removed %s\n", ui.StatusIcon(true), args[0])
			return nil
		},
	}
}

func layoutCmd(a *app) *cobra.Command {
	var selected string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the render model (cards, connectors, bounds) as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(a.out)
			enc.SetIndent("", "  ")
			return enc.Encode(layout.Build(a.editor.Snapshot(), selected))
		},
	}
	cmd.Flags().StringVar(&selected, "selected", "", "highlight this person")
	return cmd
}

func timelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline",
		Short: "List people by birth year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries := layout.Timeline(a.editor.Snapshot())
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				year := "?"
				if e.Known {
					year = strconv.Itoa(e.Year)
				}
				rows = append(rows, []string{year, e.Name, e.ID})
			}
			ui.Table(a.out, []string{"Year", "Name", "ID"}, rows)
			return nil
		},
	}
}

func gestureCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "gesture <events.jsonl>",
		Short: "Replay recorded pointer events through the canvas controller",
		Long: "Each line is a JSON event: {\"type\":\"down|move|up|wheel|zoom-in|zoom-out|reset\", \"x\", \"y\", \"node\", \"deltaY\"}.\n" +
			"Dragged people are moved and saved; the final view transform is printed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			ctrl := viewport.New(a.cfg.ViewportPolicy(), a.editor)
			sc := bufio.NewScanner(f)
			for line := 1; sc.Scan(); line++ {
				if len(sc.Bytes()) == 0 {
					continue
				}
				var ev viewport.Event
				if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				out, err := ctrl.Dispatch(ev)
				if err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				switch {
				case out.Selected != "":
					if err := a.editor.Select(out.Selected); err != nil && !errors.Is(err, core.ErrNodeNotFound) {
						return err
					}
					fmt.Fprintf(a.out, "  selected %s\n", out.Selected)
				case out.Dragged != "":
					fmt.Fprintf(a.out, "  moved %s\n", out.Dragged)
				case out.Panned:
					fmt.Fprintln(a.out, "  panned")
				}
			}
			if err := sc.Err(); err != nil {
				return err
			}
			if err := ctrl.Err(); err != nil {
				return fmt.Errorf("moving node: %w", err)
			}
			t := ctrl.Transform()
			fmt.Fprintf(a.out, "  view x=%.1f y=%.1f zoom=%.2f\n", t.X, t.Y, t.K)
			return nil
		},
	}
}
