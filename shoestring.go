package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/mogaika/shoestring/config"
	"github.com/mogaika/shoestring/render"
	"github.com/mogaika/shoestring/sandbox"
	"github.com/mogaika/shoestring/status"
	"github.com/mogaika/shoestring/web"
)

func main() {
	var cfgpath, scenepath, physicspath, addr, demo string
	var ticks uint64
	var watch bool
	flag.StringVar(&cfgpath, "config", "shoestring.yaml", "Path to config file")
	flag.StringVar(&scenepath, "scene", "", "Scene glTF override")
	flag.StringVar(&physicspath, "physics", "", "Physics world override")
	flag.StringVar(&addr, "i", "", "Address of inspector server, config value if empty, '-' to disable")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after this many ticks, 0 - run until quit")
	flag.StringVar(&demo, "demo", "", "Write a demo scene into this folder and load it")
	flag.BoolVar(&watch, "watch", false, "Reload tunables when the config file changes")
	flag.Parse()

	cfg, err := config.Load(cfgpath)
	if err != nil {
		log.Fatal(err)
	}
	if demo != "" {
		if err := sandbox.WriteDemo(demo, cfg); err != nil {
			log.Fatal(err)
		}
	}
	if scenepath != "" {
		cfg.Paths.Scene = scenepath
	}
	if physicspath != "" {
		cfg.Paths.Physics = physicspath
	}
	if addr == "" {
		addr = cfg.Web.Addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hub := status.NewHub()
	go hub.Run(ctx)

	sb, err := sandbox.New(cfg, &render.Recorder{}, hub)
	if err != nil {
		log.Fatal(err)
	}
	defer sb.Close()

	if watch {
		if err := sb.WatchConfig(ctx, cfgpath); err != nil {
			log.Printf("[main] %v", err)
		}
	}

	if addr != "-" {
		go func() {
			if err := web.StartServer(ctx, addr, sb, hub); err != nil {
				log.Printf("[main] %v", err)
			}
		}()
	}

	if err := sb.Run(ctx, ticks); err != nil {
		log.Printf("[main] %v", err)
	}
}
