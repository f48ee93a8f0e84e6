// Command gsttransformerserver boots the Transform gRPC engine: it loads
// a ServicePolicy document, wires a pipeline.Factory over the in-process
// gstfake backend, and serves transformpb.TransformServer until an
// interrupt or terminate signal arrives.
//
// Flags and their GSTTRANSFORMER_-prefixed environment fallbacks mirror
// servercli.cpp's -c/-d/endpoint surface, parsed with
// github.com/jessevdk/go-flags following the same CLI convention the
// wider example pack uses for its own command-line tools.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/technicianted/gsttransformer/internal/config"
	"github.com/technicianted/gsttransformer/internal/engine"
	"github.com/technicianted/gsttransformer/internal/gstfake"
	"github.com/technicianted/gsttransformer/internal/metrics"
	"github.com/technicianted/gsttransformer/internal/pipeline"
	"github.com/technicianted/gsttransformer/internal/transformpb"
)

type options struct {
	ConfigPath string `short:"c" long:"config" env:"GSTTRANSFORMER_CONFIG_PATH" required:"true" description:"Path to the service policy JSON document."`
	LogLevel   string `short:"d" long:"log-level" env:"GSTTRANSFORMER_LOG_LEVEL" default:"info" description:"Logging level (panic, fatal, error, warn, info, debug, trace)."`
	Endpoint   string `short:"e" long:"endpoint" env:"GSTTRANSFORMER_ENDPOINT" default:"0.0.0.0:9090" description:"gRPC listen address."`
	MetricsAddr string `long:"metrics-addr" env:"GSTTRANSFORMER_METRICS_ADDR" default:"0.0.0.0:9091" description:"HTTP listen address for the /metrics endpoint."`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	var log = logrus.New()
	if level, err := logrus.ParseLevel(opts.LogLevel); err != nil {
		log.WithError(err).Fatal("invalid log level")
	} else {
		log.SetLevel(level)
	}
	var entry = logrus.NewEntry(log)

	if err := run(opts, entry); err != nil {
		entry.WithError(err).Fatal("gsttransformerserver exited with error")
	}
}

func run(opts options, log *logrus.Entry) error {
	var configFile, err = os.Open(opts.ConfigPath)
	if err != nil {
		return errors.Wrap(err, "opening service policy")
	}
	defer configFile.Close()

	var policy *config.ServicePolicy
	if policy, err = config.Load(configFile); err != nil {
		return errors.Wrap(err, "loading service policy")
	}

	var registry = prometheus.NewRegistry()
	var m = metrics.New(registry)

	var factory = pipeline.NewFactory(policy, gstfake.New)
	var svc = engine.NewService(policy, factory, log, m)

	var grpcServer = grpc.NewServer(grpc.ForceServerCodec(transformpb.Codec()))
	transformpb.RegisterTransformServer(grpcServer, svc)

	var listener net.Listener
	if listener, err = net.Listen("tcp", opts.Endpoint); err != nil {
		return errors.Wrap(err, "listening on endpoint")
	}

	var mux = http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	var metricsServer = &http.Server{Addr: opts.MetricsAddr, Handler: mux}

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var group, groupCtx = errgroup.WithContext(ctx)

	group.Go(func() error {
		log.WithField("endpoint", opts.Endpoint).Info("serving transform engine")
		return grpcServer.Serve(listener)
	})
	group.Go(func() error {
		log.WithField("addr", opts.MetricsAddr).Info("serving metrics")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, draining in-flight calls")
		svc.Stop()
		grpcServer.GracefulStop()
		return metricsServer.Shutdown(context.Background())
	})

	return group.Wait()
}
