package cmds

import (
	"io"
	"os"
	"path/filepath"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RootOptions holds the persistent flags shared by every command.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	BaseURL    string
	Token      string
	Mode       string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "fleetnotify",
		Short:         "Live maintenance notifications for the fleet dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.LogLevel, os.Stderr)
		},
	}

	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newWatchCommand(opts),
		newTailCommand(opts),
		newInboxCommand(opts),
		newChimeCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
	)
	return cmd
}

func (o *RootOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ConfigPath, "config", "", "config file (default "+config.DefaultPath()+")")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	fs.StringVar(&o.BaseURL, "base-url", "", "backend base URL")
	fs.StringVar(&o.Token, "token", "", "access token (overrides the saved login)")
	fs.StringVar(&o.Mode, "mode", "", "transport mode (websocket|sse)")
}

// Load resolves the configuration: file, then environment, then the
// flags set on cmd.
func (o *RootOptions) Load(cmd *cobra.Command) (config.Config, error) {
	return o.load(cmd.Flags())
}

func (o *RootOptions) load(flags *pflag.FlagSet) (config.Config, error) {
	path, required := o.ConfigPath, o.ConfigPath != ""
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv(os.Getenv)

	if flags.Changed("base-url") {
		cfg.BaseURL = o.BaseURL
	}
	if flags.Changed("token") {
		cfg.Token = o.Token
	}
	if flags.Changed("mode") {
		cfg.Mode = o.Mode
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func setupLogging(level string, w io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	return nil
}

// logToFile moves logging off the terminal while the dashboard owns it.
func logToFile(dir string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(filepath.Join(dir, "fleetnotify.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "open log file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: f, TimeFormat: "2006-01-02 15:04:05", NoColor: true})
	return f, nil
}
