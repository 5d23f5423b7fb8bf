package cmds

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/bus"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/notify"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/orchestrator"
	"github.com/CesarGaviriaS/WebApp-UsoChicamocha/pkg/views"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newTailCommand(opts *RootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print notifications as they arrive, without the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Load(cmd)
			if err != nil {
				return err
			}
			app, err := newLiveApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, ctx := errgroup.WithContext(ctx)

			out := cmd.OutOrStdout()
			g.Go(func() error {
				return bus.Consume(ctx, app.pubsub, bus.TopicEvents, func(env bus.Envelope) error {
					return printEvent(out, env, asJSON)
				})
			})
			app.Start(ctx, g)
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print every bus event as a JSON line")
	return cmd
}

// printEvent writes notifications to out and logs everything else.
func printEvent(out io.Writer, env bus.Envelope, asJSON bool) error {
	if asJSON {
		b, err := env.MarshalJSONBytes()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}

	switch env.Type {
	case bus.TypeNotificationAdded:
		var n notify.Notification
		if err := env.DecodeData(&n); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%s  %-11s %s\n", n.At.Format("2006-01-02 15:04:05"), n.Topic, n.Text)
		return err
	case bus.TypeConnectionChanged:
		var info orchestrator.Info
		if err := env.DecodeData(&info); err != nil {
			return err
		}
		ev := log.Info()
		if info.Degraded {
			ev = log.Error()
		}
		ev.Str("mode", string(info.Mode)).
			Bool("connected", info.Connected).
			Bool("fallback_attempted", info.FallbackAttempted).
			Int("failures", info.Failures).
			Msg("connection changed")
	case bus.TypeTransportError:
		var te orchestrator.TransportError
		if err := env.DecodeData(&te); err != nil {
			return err
		}
		ev := log.Warn()
		if te.Fatal {
			ev = log.Error()
		}
		ev.Str("mode", string(te.Mode)).Msg(te.Error)
	case bus.TypeRefreshCompleted:
		var res views.Result
		if err := env.DecodeData(&res); err != nil {
			return err
		}
		log.Debug().Str("view", string(res.View)).Int("rows", res.Rows).Str("error", res.Error).Msg("view refreshed")
	}
	return nil
}
