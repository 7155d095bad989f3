package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/mql/internal/controller"
	"github.com/nerrad567/mql/internal/infrastructure/config"
	"github.com/nerrad567/mql/internal/infrastructure/influxdb"
	"github.com/nerrad567/mql/internal/listener"
	"github.com/nerrad567/mql/internal/protocol"
	"github.com/nerrad567/mql/internal/publisher"
	"github.com/nerrad567/mql/internal/severity"
)

// parseSeverityArg parses a CLI severity: a hex digit or a tier name.
func parseSeverityArg(name, value string) (severity.Severity, error) {
	sev, err := severity.Parse(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return sev, nil
}

// listenArgs resolves the optional target and threshold of listen.
func listenArgs(args []string) (target string, threshold severity.Severity, err error) {
	target, threshold, _, err = commandArgs(args)
	return target, threshold, err
}

func newListenCmd(opts *rootOptions) *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "listen [target] [severity]",
		Short: "Render log records of one unit or of all units",
		Long: "Subscribe to log records and print those at or above the given severity.\n" +
			"target defaults to ALL and severity to ALL (15).",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, threshold, err := listenArgs(args)
			if err != nil {
				return err
			}

			a, err := opts.newApp(cmd, func(cfg *config.Config) error {
				if archive {
					cfg.InfluxDB.Enabled = true
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.listen(cmd.Context(), target, threshold)
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "also write rendered records to InfluxDB")
	return cmd
}

func (a *app) listen(ctx context.Context, target string, threshold severity.Severity) error {
	listenOpts := []listener.Option{listener.WithMetrics(a.metrics)}

	if a.cfg.InfluxDB.Enabled {
		archive, err := influxdb.Connect(a.cfg.InfluxDB)
		if err != nil {
			return err
		}
		defer archive.Close()

		archive.SetOnError(func(err error) {
			a.logger.Warn("archive write failed", "error", err)
		})
		listenOpts = append(listenOpts, listener.WithSink(archiveSink{client: archive}))
	}

	conn, err := a.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctrl, err := controller.New(conn.client, conn.session, a.cfg.MQL.Prefix, a.logger)
	if err != nil {
		return err
	}

	return a.run(ctx, func(ctx context.Context) error {
		return ctrl.Listen(ctx, target, threshold, a.out, listenOpts...)
	})
}

// commandArgs resolves the optional target, severity and count of the
// level and count commands. They default to ALL, ALL (15) and 1.
func commandArgs(args []string) (target string, sev severity.Severity, count uint32, err error) {
	target = protocol.Broadcast
	sev = severity.Lowest
	count = 1

	if len(args) > 0 {
		target = args[0]
	}
	if len(args) > 1 {
		if sev, err = parseSeverityArg("severity", args[1]); err != nil {
			return "", 0, 0, err
		}
	}
	if len(args) > 2 {
		if count, err = parseCount(args[2]); err != nil {
			return "", 0, 0, err
		}
	}
	return target, sev, count, nil
}

func newLevelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "level [target] [severity]",
		Short: "Set the level of a unit, or of ALL units",
		Long: "Publish a retained level command, so units that connect later pick it up too.\n" +
			"target defaults to ALL and severity to ALL (15).",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, sev, _, err := commandArgs(args)
			if err != nil {
				return err
			}

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			return a.sendCommand(cmd.Context(), func(ctx context.Context, ctrl *controller.Controller) error {
				return ctrl.SendSetLevel(ctx, target, sev)
			})
		},
	}
}

// parseCount parses the count argument of the count command.
func parseCount(value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid count %q: %w", value, severity.ErrInvalidCount)
	}
	return uint32(n), nil
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count [target] [severity] [count]",
		Short: "Raise a unit's level for its next <count> records",
		Long: "Publish a counted level command.\n" +
			"target defaults to ALL, severity to ALL (15) and count to 1.",
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, sev, count, err := commandArgs(args)
			if err != nil {
				return err
			}

			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			return a.sendCommand(cmd.Context(), func(ctx context.Context, ctrl *controller.Controller) error {
				return ctrl.SendSetCountedLevel(ctx, target, sev, count)
			})
		},
	}
}

// emitOptions configures the test producer.
type emitOptions struct {
	unitID   string
	level    string
	message  string
	interval time.Duration
	count    int
}

func newEmitCmd(opts *rootOptions) *cobra.Command {
	eo := &emitOptions{}

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Run a test unit that logs at every severity in turn",
		Long: "Publish one record per interval, cycling through severities 0 to f,\n" +
			"while obeying level commands sent to the unit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.newApp(cmd, func(cfg *config.Config) error {
				if eo.unitID != "" {
					cfg.MQL.UnitID = eo.unitID
				}
				if eo.level != "" {
					sev, err := parseSeverityArg("level", eo.level)
					if err != nil {
						return err
					}
					cfg.MQL.Level = int(sev)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), eo)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&eo.unitID, "id", "", "unit-id to publish as (default $MQL_ID or my-id)")
	flags.StringVar(&eo.level, "level", "", "initial level (default $MQL_LEVEL or INFO)")
	flags.StringVar(&eo.message, "message", "abc", "message body")
	flags.DurationVar(&eo.interval, "interval", time.Second, "delay between records")
	flags.IntVar(&eo.count, "count", 0, "stop after this many records (0 runs until interrupted)")

	return cmd
}

func (a *app) emit(ctx context.Context, eo *emitOptions) error {
	conn, err := a.connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	pub, err := publisher.New(conn.client, publisher.Config{
		Prefix: a.cfg.MQL.Prefix,
		UnitID: a.cfg.MQL.UnitID,
		Level:  a.cfg.MQL.Severity(),
	}, publisher.WithLogger(a.logger), publisher.WithMetrics(a.metrics))
	if err != nil {
		return err
	}
	pub.Attach(conn.session)

	return a.run(ctx, func(ctx context.Context) error {
		runCtx, stop := context.WithCancel(ctx)
		defer stop()

		g, gctx := errgroup.WithContext(runCtx)
		g.Go(func() error { return conn.session.Run(gctx) })
		g.Go(func() error {
			defer stop()
			return a.produce(gctx, conn, pub, eo)
		})
		return g.Wait()
	})
}

// produce logs eo.message at severities 0..f in turn until ctx ends or
// eo.count records were offered.
func (a *app) produce(ctx context.Context, conn *connection, pub *publisher.Publisher, eo *emitOptions) error {
	if err := conn.session.WaitConnected(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(eo.interval)
	defer ticker.Stop()

	for n := 0; eo.count == 0 || n < eo.count; n++ {
		sev := severity.Severity(n % severity.Count)
		if err := pub.Log(sev, eo.message); err != nil {
			return err
		}
		a.logger.Debug("offered record", "n", n, "severity", sev.String(), "level", pub.CurrentLevel().String())

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
