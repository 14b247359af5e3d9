// Package main is the linuxserver host: it loads the configuration, starts
// the dispatcher and the acceptor and logs every accepted connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemoofnemo/LinuxServer/api"
	"github.com/nemoofnemo/LinuxServer/control"
	"github.com/nemoofnemo/LinuxServer/server"
	"go.uber.org/zap"
)

// Version information (set via ldflags during build).
var version = "dev"

type options struct {
	configPath  string
	watch       bool
	printInit   bool
	showVersion bool
	port        int
	workers     int
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Println("linuxserver", version)
		return 0
	}
	if opts.printInit {
		out, err := control.DefaultYAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = os.Stdout.Write(out)
		return 0
	}

	cfg, err := control.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.port >= 0 {
		cfg.Listener.Port = opts.port
	}
	if opts.workers > 0 {
		cfg.Dispatcher.Workers = opts.workers
	}

	var srvOpts []server.Option
	if opts.watch && opts.configPath != "" {
		srvOpts = append(srvOpts, server.WithConfigFile(opts.configPath))
	}
	srv, err := server.New(cfg, srvOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	log := srv.Logger()
	if err := srv.HandleFunc(api.EventConnection, func(payload any) {
		c := payload.(*api.Conn)
		log.Info("connection",
			zap.String("id", c.ID),
			zap.String("remote", c.RemoteAddr),
			zap.Int("fd", c.FD))
		if err := srv.Acceptor().CloseConn(c.FD); err != nil {
			log.Warn("close connection", zap.String("id", c.ID), zap.Error(err))
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&opts.watch, "watch", false, "Reload dispatcher status when the config file changes")
	flag.BoolVar(&opts.printInit, "init", false, "Print the default configuration and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	flag.IntVar(&opts.port, "port", -1, "Override listener.port")
	flag.IntVar(&opts.workers, "workers", 0, "Override dispatcher.workers")
	flag.Parse()
	return opts
}
