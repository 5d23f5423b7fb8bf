package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newInboxCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Inspect the persisted notification inbox",
	}
	cmd.AddCommand(newInboxListCommand(opts), newInboxRemoveCommand(opts), newInboxClearCommand(opts))
	return cmd
}

func withSession(opts *RootOptions, cmd *cobra.Command, fn func(*sessionState) error) error {
	cfg, err := opts.Load(cmd)
	if err != nil {
		return err
	}
	st, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newInboxListCommand(opts *RootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, cmd, func(st *sessionState) error {
				out := cmd.OutOrStdout()
				msgs := st.inbox.Messages()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(msgs)
				}
				fmt.Fprintf(out, "%d notification(s)\n", st.inbox.Count())
				for _, n := range msgs {
					fmt.Fprintf(out, "%s  %s  %-11s %s\n", n.ID, n.At.Format("2006-01-02 15:04"), n.Topic, n.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the inbox as JSON")
	return cmd
}

func newInboxRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Dismiss notifications by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, cmd, func(st *sessionState) error {
				var missing []string
				for _, id := range args {
					if !st.inbox.Remove(id) {
						missing = append(missing, id)
					}
				}
				if len(missing) > 0 {
					return errors.Errorf("no notification with id %v", missing)
				}
				return nil
			})
		},
	}
}

func newInboxClearCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Dismiss every notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, cmd, func(st *sessionState) error {
				st.inbox.Clear()
				return nil
			})
		},
	}
}
