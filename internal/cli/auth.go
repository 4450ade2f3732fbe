package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/deskview/internal/auth"
	"github.com/Makepad-fr/deskview/internal/ui"
)

func newAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the language-model API key",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: desk auth <set|status|clear>")
		},
	}

	set := &cobra.Command{
		Use:   "set <key>",
		Short: "Save the API key to the key file (owner-only permissions)",
		Args:  exactArgs(1, "desk auth set <key>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.SaveKey(a.keyLookup(), args[0]); err != nil {
				return err
			}
			ui.OK("key saved to " + a.cfg.Chat.KeyFile)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show where the API key comes from",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.Resolve(a.keyLookup())
			if errors.Is(err, auth.ErrCredentialMissing) {
				ui.Warn(err.Error())
				return nil
			}
			if err != nil {
				return err
			}
			from := "$" + a.cfg.Chat.KeyEnv
			if key.Source == auth.SourceFile {
				from = key.Path
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key %s from %s\n", key.Masked(), from)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the key file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := auth.DeleteKey(a.keyLookup()); err != nil {
				return err
			}
			ui.OK("key file removed")
			return nil
		},
	}

	cmd.AddCommand(set, status, clearCmd)
	return cmd
}
