package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/codigloo/contestd/internal/config"
	"github.com/codigloo/contestd/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("contestd: %v", err)
	}
}

func run() error {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		return fmt.Errorf("CONFIG_PATH not set")
	}

	c := server.DefaultConfig()
	if err := config.Load(path, &c); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := server.Init(c)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	go s.Start()

	<-shutdown
	s.Shutdown()
	return nil
}
