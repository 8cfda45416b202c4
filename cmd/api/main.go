package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/eskrenkovic/correlation-go/internal/config"
	"github.com/eskrenkovic/correlation-go/internal/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	rootPath := os.Getenv(config.RootPathEnv)
	if len(os.Args) > 1 {
		rootPath = os.Args[1]
		if rootPath == "" {
			log.Fatal("root directory path is empty")
		}
	}

	if rootPath != "" {
		if err := godotenv.Load(path.Join(rootPath, "config.env")); err != nil {
			log.Fatal(err)
		}
	}

	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = conf.Logger.Sync() }()

	srv, err := server.NewHTTPServer(conf)
	if err != nil {
		conf.Logger.Fatal("failed to create server", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() { errs <- srv.Start() }()

	select {
	case err := <-errs:
		if err != nil {
			conf.Logger.Error("server failed", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	if err := srv.Stop(context.Background()); err != nil {
		conf.Logger.Error("failed to stop server", zap.Error(err))
	}
}
