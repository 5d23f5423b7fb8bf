package cmds

import (
	"time"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *RootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save an access token for this session",
		Long: `Save the access token given with --token (or FLEETNOTIFY_TOKEN) in the
session store, where watch and tail pick it up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, cmd, func(st *sessionState) error {
				token, ok := session.StaticToken(st.cfg.Token).Token()
				if !ok {
					return errors.New("no token: pass --token or set FLEETNOTIFY_TOKEN")
				}
				if err := session.SaveLogin(st.store, token, user); err != nil {
					return errors.Wrap(err, "save login")
				}
				log.Info().Str("user", user).Msg("logged in")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user name shown in the dashboard")
	return cmd
}

func newLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved token and empty the inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts, cmd, func(st *sessionState) error {
				st.inbox.Clear()
				if err := session.PurgeLogin(st.store); err != nil {
					return errors.Wrap(err, "forget login")
				}
				log.Info().Msg("logged out")
				return nil
			})
		},
	}
}

func newChimeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chime",
		Short: "Play the notification sound once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load(cmd)
			if err != nil {
				return err
			}
			engine := newSoundEngine(cfg)
			engine.Activate()
			engine.Play()
			// the player runs detached; give it time to finish
			time.Sleep(1200 * time.Millisecond)
			return nil
		},
	}
}
