package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/manifold-inc/manifold-sdk/lib/eflag"

	"github.com/ASSATALK/ios-project/internal/engine"
	"github.com/ASSATALK/ios-project/internal/netaddr"
	"github.com/ASSATALK/ios-project/internal/server"
	"github.com/ASSATALK/ios-project/internal/shared"
)

func main() {
	// Flags / ENV Variables
	port := flag.Int("port", shared.DefaultPort, "Port to serve on")
	debug := flag.Bool("debug", false, "Debug enabled")
	iface := flag.String("iface", "en0", "Preferred wireless interface for the displayed address")
	descriptorPath := flag.String("model-descriptor", "", "Path to the packaged-model descriptor")

	err := eflag.SetFlagsFromEnvironment()
	if err != nil {
		panic(err)
	}
	flag.Parse()

	var logger *zap.Logger
	if !*debug {
		logger, err = zap.NewProduction()
		if err != nil {
			panic("Failed init logger")
		}
	}
	if *debug {
		logger, err = zap.NewDevelopment()
		if err != nil {
			panic("Failed init logger")
		}
	}
	log := logger.Sugar()

	desc := &engine.Descriptor{Model: "noop", Library: "noop"}
	if *descriptorPath != "" {
		desc, err = engine.LoadDescriptor(*descriptorPath)
		if err != nil {
			log.Fatalw("failed loading model descriptor", "error", err)
		}
	} else {
		log.Warn("no model descriptor given, serving the noop engine")
	}

	eng, err := engine.New(desc)
	if err != nil {
		log.Fatalw("failed loading engine", "error", err)
	}

	srv := server.New(server.Config{Port: *port}, eng, desc.Model, log)
	if err := srv.Start(); err != nil {
		// Port in use or invalid port. Fatal, no retry.
		log.Fatalw("failed to start server", "error", err)
	}

	addr, ok := netaddr.Current(*iface)
	if !ok {
		addr = "unknown"
	}
	log.Infow("serving", "model", desc.Model, "url", fmt.Sprintf("http://%s:%d", addr, *port))

	go func() {
		if err := srv.Serve(); err != nil {
			log.Fatalw("server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shared.DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("shutdown incomplete", "error", err)
	}
}
