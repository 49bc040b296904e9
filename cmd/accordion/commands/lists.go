package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/livetemplate/accordion/internal/runtime"
	"github.com/livetemplate/accordion/internal/store"
)

// maxColumnWidth is the maximum width for table columns before truncation
const maxColumnWidth = 50

// withStore loads the config, opens the store and runs fn with a bounded context
func (a *App) withStore(fn func(ctx context.Context, s store.Store) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	s, err := a.openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return fn(ctx, s)
}

func newListsCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Show the lists in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(ctx context.Context, s store.Store) error {
				containers, err := s.ListContainers(ctx)
				if err != nil {
					return errors.New(store.UserFriendlyMessage(err))
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, containers)
				}
				if len(containers) == 0 {
					fmt.Fprintln(out, "No lists.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tDESCRIPTION")
				for _, c := range containers {
					fmt.Fprintf(tw, "%s\t%s\n", truncate(c.Name), truncate(c.Description))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newProvisionCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "provision <name>",
		Short: "Create a list with a Description field unless it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(ctx context.Context, s store.Store) error {
				res := runtime.Provision(ctx, s, args[0])
				switch res.Outcome {
				case runtime.ProvisionCreated, runtime.ProvisionExists:
					fmt.Fprintln(cmd.OutOrStdout(), res.Alert)
					return nil
				default:
					return errors.New(res.Alert)
				}
			})
		},
	}
}

func newItemsCmd(app *App) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "items <list>",
		Short: "Show the rows of a list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withStore(func(ctx context.Context, s store.Store) error {
				res := runtime.FetchItems(ctx, s, args[0])
				if !res.OK() {
					return errors.New(store.UserFriendlyMessage(res.Err))
				}
				out := cmd.OutOrStdout()
				if asJSON {
					return writeJSON(out, res.Items)
				}
				if len(res.Items) == 0 {
					fmt.Fprintln(out, "No items.")
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "TITLE\tDESCRIPTION")
				for _, it := range res.Items {
					fmt.Fprintf(tw, "%s\t%s\n", truncate(it.Title), truncate(it.Description))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd(app *App) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:     "add <list>",
		Short:   "Append a row to a list",
		Example: `  accordion add Announcements --title Welcome --description "<p>Hi</p>"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New(runtime.AlertEmptyTitle)
			}
			return app.withStore(func(ctx context.Context, s store.Store) error {
				res := runtime.AddItem(ctx, s, args[0], title, description)
				if !res.OK() {
					return errors.New("Failed to add item: " + store.UserFriendlyMessage(res.Err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", res.Item.Title, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "row title (required)")
	cmd.Flags().StringVar(&description, "description", "", "row description (rich text)")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// truncate shortens s to maxColumnWidth runes and flattens newlines
func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= maxColumnWidth {
		return s
	}
	return string(r[:maxColumnWidth-3]) + "..."
}
