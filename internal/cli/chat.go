package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/deskview/internal/chat"
	"github.com/Makepad-fr/deskview/internal/tui"
	"github.com/Makepad-fr/deskview/internal/ui"
	"github.com/Makepad-fr/deskview/internal/watch"
)

func newAskCmd(a *app) *cobra.Command {
	var showPrompt bool
	cmd := &cobra.Command{
		Use:     "ask <question...>",
		Short:   "Ask the assistant about the items on the desk",
		Example: `  desk ask "Where is my laptop?"`,
		Args:    minArgs(1, "desk ask <question...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if err := a.loadStore(); err != nil {
				return err
			}
			items := a.store.Items()
			out := cmd.OutOrStdout()
			if showPrompt {
				fmt.Fprintln(out, chat.BuildPrompt(question, items))
				return nil
			}

			asker, err := a.askerFactory()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(out, ui.C(ui.Current().Accent, "You: ")+question)
			answer, err := asker.Ask(ctx, question, items)
			if err != nil {
				if errors.Is(err, chat.ErrExternalCall) {
					// shown as the answer, not as a failure of the command
					fmt.Fprintln(out, ui.C(ui.Current().Error, "Assistant: (error) ")+err.Error())
					return nil
				}
				return err
			}
			fmt.Fprintln(out, ui.C(ui.Current().Accent, "Assistant: ")+answer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "print the prompt instead of sending it")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Redraw the desk whenever the items file changes",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStore(); err != nil {
				return err
			}
			w := a.newWatcher(
				watch.OnReload(func() {
					printDesk(a.store.Items(), true)
				}),
				watch.OnError(func(err error) {
					ui.Warn("keeping previous items: " + err.Error())
				}),
			)
			w.Prime()
			printDesk(a.store.Items(), true)
			a.log.Info("watching", zap.String("path", a.store.Path()), zap.Duration("interval", w.Interval()))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w.Run(ctx)
			return nil
		},
	}
}

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive desk view",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadStore(); err != nil {
				return err
			}
			w := a.newWatcher()
			w.Prime()
			asker, askErr := a.askerFactory()
			return tui.Run(tui.Deps{
				Store:    a.store,
				Watcher:  w,
				Asker:    asker,
				AskerErr: askErr,
			})
		},
	}
}

var _ tui.Asker = (*chat.Client)(nil)
