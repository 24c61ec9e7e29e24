// Package main wires the storage engine, router, protocol adapters, and
// LB data plane into one listening process, matching the teacher's own
// cmd/-level preference for flag-driven, profile-free startup.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/authn"
	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/events"
	"github.com/NVIDIA/cloudemu/lb"
	"github.com/NVIDIA/cloudemu/protocol/awsjson"
	"github.com/NVIDIA/cloudemu/protocol/awsquery"
	"github.com/NVIDIA/cloudemu/protocol/azure"
	"github.com/NVIDIA/cloudemu/protocol/gcp"
	"github.com/NVIDIA/cloudemu/protocol/s3rest"
	"github.com/NVIDIA/cloudemu/protocol/zerolb"
	"github.com/NVIDIA/cloudemu/router"
	"github.com/NVIDIA/cloudemu/stats"
	"github.com/NVIDIA/cloudemu/store"
)

// NOTE: set by ldflags.
var (
	version string
	build   string
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := cmn.DefaultConfig()
	cmn.RegisterFlags(flag.CommandLine, cfg)
	flag.Parse()
	cmn.GCO.Put(cfg)

	glog.Infof("cloudemu %s (build %s) starting, data-dir=%s listen=%s", version, build, cfg.DataDir, cfg.ListenAddr)

	engine, err := store.Open(cfg.DataDir, cfg.Region)
	if err != nil {
		glog.Errorf("failed to open storage engine: %v", err)
		return 1
	}

	dispatcher := events.NewDispatcher(engine)
	patterns := events.NewPatternCache()

	rt := router.New(engine)
	collector := stats.NewCollector()
	rt.SetCollector(collector)

	rt.RegisterS3((&s3rest.Adapter{Engine: engine, Endpoint: cfg.Endpoint}).ServeHTTP)

	rt.RegisterJSONTarget("DynamoDB_20120810", awsjson.NewDynamoDB(engine).ServeHTTP)
	rt.RegisterJSONTarget("TrentService", awsjson.NewKMS(engine).ServeHTTP)
	rt.RegisterJSONTarget("AWSEvents", awsjson.NewEventBridge(engine, dispatcher, patterns).ServeHTTP)
	rt.RegisterJSONTarget("AWSStepFunctions", awsjson.NewStepFunctions(engine).ServeHTTP)
	rt.RegisterJSONTarget("secretsmanager", awsjson.NewSecretsManager(engine).ServeHTTP)
	issuer := authn.NewIssuer()
	rt.RegisterJSONTarget("AWSCognitoIdentityProviderService", awsjson.NewCognito(engine, issuer).ServeHTTP)
	rt.RegisterJSONTarget("GraniteServiceVersion20100801", awsjson.NewCloudWatch(engine).ServeHTTP)
	rt.RegisterJSONTarget("Logs_20140328", awsjson.NewCloudWatchLogs(engine).ServeHTTP)

	// SQS and SNS share the Query-protocol transport (POST form-encoded to
	// "/"); their Action names are disjoint, so one merged Service routes
	// both (awsquery.Service.Merge).
	queryService := awsquery.NewSQS(engine, cfg.Endpoint)
	queryService.Merge(awsquery.NewSNS(engine, dispatcher))
	rt.RegisterContentType("application/x-www-form-urlencoded", queryService.ServeHTTP)

	rt.RegisterPathPrefix("/dbs/", (&azure.Adapter{Engine: engine}).ServeHTTP)
	rt.RegisterPathPrefix("/storage/v1/", (&gcp.Adapter{Engine: engine}).ServeHTTP)
	rt.RegisterPathPrefix("/upload/storage/v1/", (&gcp.Adapter{Engine: engine}).ServeHTTP)

	plane := lb.NewDataPlane(engine)
	lbAdapter := &zerolb.Adapter{Engine: engine, Plane: plane}
	rt.RegisterPathPrefix("/v1/lb/", lbAdapter.ServeHTTP)
	if err := lbAdapter.Sync(); err != nil {
		glog.Errorf("failed to restore LB data plane: %v", err)
		return 1
	}

	sampler := stats.NewSampler(engine, collector, 30*time.Second)
	samplerCtx, stopSampler := context.WithCancel(context.Background())
	go sampler.Run(samplerCtx)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/", rt)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		glog.Infof("cloudemu: listening on %s", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			glog.Errorf("cloudemu: server stopped: %v", err)
			stopSampler()
			return 1
		}
	case sig := <-sigCh:
		glog.Infof("cloudemu: received %s, shutting down", sig)
	}

	stopSampler()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("cloudemu: graceful shutdown failed: %v", err)
		return 1
	}
	return 0
}
