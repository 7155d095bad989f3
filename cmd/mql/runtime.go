package main

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/mql/internal/controller"
	"github.com/nerrad567/mql/internal/infrastructure/metrics"
	"github.com/nerrad567/mql/internal/infrastructure/mqtt"
	"github.com/nerrad567/mql/internal/session"
)

// connection bundles a broker client with the session consuming it.
type connection struct {
	client  *mqtt.Client
	session *session.Session
}

// connect opens the broker connection. Failure is fatal for the command.
func (a *app) connect() (*connection, error) {
	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return nil, err
	}
	client.SetLogger(a.logger.With("component", "mqtt"))

	a.logger.Debug("connected to broker",
		"host", a.cfg.MQTT.Broker.Host,
		"port", a.cfg.MQTT.Broker.Port,
	)

	return &connection{
		client:  client,
		session: session.New(client, a.logger),
	}, nil
}

func (c *connection) Close() {
	_ = c.client.Close()
}

// run executes fn next to the metrics server, if enabled. The first
// error cancels everything else.
func (a *app) run(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.metrics != nil {
		srv := metrics.NewServer(a.cfg.Metrics.Addr, a.cfg.Metrics.Path, a.metrics)
		a.logger.Info("serving metrics", "addr", a.cfg.Metrics.Addr, "path", a.cfg.Metrics.Path)
		g.Go(func() error { return srv.Run(gctx) })
	}

	g.Go(func() error {
		err := fn(gctx)
		if err == nil && a.metrics != nil {
			// fn finished on its own; stop the metrics server too.
			return errDone
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errDone) {
		return err
	}
	return nil
}

// errDone ends the errgroup after a command completes normally.
var errDone = errors.New("done")

// sendCommand connects, runs the session and calls send once the
// controller is ready. It returns when send has published.
func (a *app) sendCommand(ctx context.Context, send func(ctx context.Context, ctrl *controller.Controller) error) error {
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
		runCtx, stop := context.WithCancel(ctx)
		defer stop()

		g, gctx := errgroup.WithContext(runCtx)
		g.Go(func() error { return conn.session.Run(gctx) })
		g.Go(func() error {
			defer stop()
			return send(gctx, ctrl)
		})
		return g.Wait()
	})
}
