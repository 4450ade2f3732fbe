package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/deskview/internal/auth"
	"github.com/Makepad-fr/deskview/internal/chat"
	"github.com/Makepad-fr/deskview/internal/config"
	"github.com/Makepad-fr/deskview/internal/logging"
	"github.com/Makepad-fr/deskview/internal/store/jsonstore"
	"github.com/Makepad-fr/deskview/internal/tui"
	"github.com/Makepad-fr/deskview/internal/ui"
	"github.com/Makepad-fr/deskview/internal/watch"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks mistakes in how the command was invoked.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{fmt.Sprintf(format, a...)} }

// app is what every subcommand shares once the config is loaded.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store *jsonstore.Store

	closeLog func()

	// askerFactory builds the chat collaborator; tests swap it out.
	askerFactory func() (tui.Asker, error)

	// root flags
	configFile string
	dataPath   string
	theme      string
	noColor    bool
}

// Execute runs the command tree with args and returns an exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	return execute(&app{}, args, stdout, stderr)
}

func execute(a *app, args []string, stdout, stderr io.Writer) int {
	ui.SetOutput(stdout, stderr)
	if a.askerFactory == nil {
		a.askerFactory = a.newChatClient
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if a.closeLog != nil {
		a.closeLog()
	}
	if err == nil {
		return ExitOK
	}
	ui.Fail(err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr)
		_ = root.Usage()
		return ExitUsage
	}
	return ExitError
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "desk",
		Short: "desk - see and ask about the things on your desk",
		Long: `desk keeps a list of desk items (name, position, colour) in a JSON file,
draws them on a map of the desk, notices when the file is edited by hand,
and can ask a language model questions about them.

Coordinates are fractions of the desk, 0 to 1, origin top-left.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.SetOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
			return a.setup(cmd.Name() == "tui")
		},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default desk.yaml if present)")
	pf.StringVar(&a.dataPath, "data", "", "items file (overrides store.path)")
	pf.StringVar(&a.theme, "theme", "", strings.Join(ui.Themes, ", ")+" (overrides ui.theme)")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colours")

	root.AddCommand(
		newListCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newRemoveCmd(a),
		newAskCmd(a),
		newWatchCmd(a),
		newTUICmd(a),
		newAuthCmd(a),
	)
	return root
}

// setup loads config, builds the logger and the store. The store is not
// loaded here; commands that need items call loadStore.
func (a *app) setup(fullScreen bool) error {
	cfg, err := config.Load(config.Options{File: a.configFile})
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Store.Path = a.dataPath
	}
	if a.theme != "" {
		if !ui.KnownTheme(a.theme) {
			return usagef("unknown theme %q: want one of %s", a.theme, strings.Join(ui.Themes, ", "))
		}
		cfg.UI.Theme = a.theme
	}
	if !ui.KnownTheme(cfg.UI.Theme) {
		return fmt.Errorf("ui.theme %q: want one of %s", cfg.UI.Theme, strings.Join(ui.Themes, ", "))
	}
	a.cfg = cfg

	ui.SetTheme(cfg.UI.Theme)
	if a.noColor {
		ui.SetColorForcing(false, true)
	}

	newLogger := logging.New
	if fullScreen {
		newLogger = logging.NewForTerminalUI
	}
	log, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.log, a.closeLog = log, closeLog
	a.store = jsonstore.New(cfg.Store.Path, jsonstore.WithLogger(log.Named("store")))
	return nil
}

func (a *app) loadStore() error {
	if err := a.store.Load(); err != nil {
		if errors.Is(err, jsonstore.ErrCorruptData) {
			return fmt.Errorf("%s: %w (fix or move the file and try again)", a.store.Path(), err)
		}
		return err
	}
	return nil
}

func (a *app) newWatcher(opts ...watch.Option) *watch.Watcher {
	opts = append([]watch.Option{
		watch.WithInterval(a.cfg.Watch.Interval),
		watch.WithLogger(a.log.Named("watch")),
	}, opts...)
	return watch.New(a.store.Path(), a.store, opts...)
}

func (a *app) keyLookup() auth.Lookup {
	return auth.Lookup{File: a.cfg.Chat.KeyFile, Env: a.cfg.Chat.KeyEnv}
}

// newChatClient resolves the key and builds the client. A missing key comes
// back as auth.ErrCredentialMissing before anything touches the network.
func (a *app) newChatClient() (tui.Asker, error) {
	key, err := auth.Resolve(a.keyLookup())
	if err != nil {
		return nil, err
	}
	completer, err := chat.NewOpenAICompleter(chat.OpenAIConfig{
		APIKey:      key.Value,
		Model:       a.cfg.Chat.Model,
		BaseURL:     a.cfg.Chat.BaseURL,
		Temperature: a.cfg.Chat.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return chat.NewClient(completer,
		chat.WithTimeout(a.cfg.Chat.Timeout),
		chat.WithClientLogger(a.log.Named("chat")),
	), nil
}
