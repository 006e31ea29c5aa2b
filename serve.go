package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/wansing/perspective-lims/api"
	"github.com/wansing/perspective-lims/util"
	"github.com/wansing/perspective-lims/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		s, err := openSite(cfg, prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		defer s.Close()

		var server = &api.Server{
			Core:           s.core,
			Dispatcher:     s.dispatcher,
			Extenders:      []api.ReadExtender{workflow.ReadExtender{Dispatcher: s.dispatcher}},
			MetricsHandler: promhttp.Handler(),
			Logger:         s.logger,
		}

		var mux = http.NewServeMux()
		util.HandlePrefix(mux, cfg.Base, server.Handler())

		listener, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return err
		}

		s.logger.Info("listening", "addr", cfg.Listen, "base", cfg.Base)

		httpSrv := &http.Server{
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- httpSrv.Serve(listener)
		}()

		// graceful shutdown
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM

		select {
		case err := <-serverErrors:
			if err != http.ErrServerClosed {
				return err
			}
		case sig := <-shutdown:
			s.logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				s.logger.Warn("graceful shutdown did not complete", "err", err)
				return httpSrv.Close()
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "serve HTTP at this `ip:port` (overrides the config file)")
	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	serveCmd.Flags().String("base", "", "strip off this `prefix` from every HTTP request (overrides the config file)")
}
