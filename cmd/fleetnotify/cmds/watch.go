package cmds

import (
	"context"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/tui/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the live dashboard",
		Long: `Open the live dashboard: view tabs, the notification inbox and the
connection event log. The first key press enables the notification sound.
Logs go to fleetnotify.log in the session directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load(cmd)
			if err != nil {
				return err
			}
			logFile, err := logToFile(cfg.Session.Dir)
			if err != nil {
				return err
			}
			defer logFile.Close()

			app, err := newLiveApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			model := models.NewRootModel(models.Deps{
				Orchestrator: app.orch,
				Views:        app.board,
				Inbox:        app.inbox,
				Sound:        app.sound,
				AutoRefresh:  app.auto,
				Logout:       app.Logout,
			})
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

			g.Go(func() error {
				return tui.Forward(ctx, app.pubsub, program.Send)
			})
			g.Go(func() error {
				stop := tui.Watch(tui.Sources{Inbox: app.inbox, Sound: app.sound, Board: app.board}, program.Send)
				<-ctx.Done()
				stop()
				return nil
			})
			app.Start(ctx, g)
			g.Go(func() error {
				defer cancel()
				_, err := program.Run()
				if errors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				return err
			})
			return g.Wait()
		},
	}
}
