package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"heatsim/queue"
	"heatsim/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				opts.cfg.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides [server] Addr")
	return cmd
}

func serve(ctx context.Context, opts *options) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := queue.NewMetrics()
	q := queue.New(st, queue.DefaultConfig(), metrics)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	srv := server.NewServer(opts.cfg.Addr, upgrader, q, metrics.Handler())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		return queue.NewWorker(q).Run(gctx)
	})
	err = g.Wait()
	log.WithError(err).Info("服务退出")
	return err
}
