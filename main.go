/*
vkbuild validates declarative render pass and pipeline descriptions
against the builder rules, and optionally keeps watching them.
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkbuild/engine/assets"
	"github.com/spaghettifunk/vkbuild/engine/core"
)

func main() {
	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	if err := run(os.Args[1:], os.Stdout, sigCh); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			core.LogError(err.Error())
		}
		os.Exit(1)
	}
}

func loadConfig(args []string, stderr io.Writer) (core.Config, error) {
	fs := flag.NewFlagSet("vkbuild", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "optional TOML configuration file")
	dir := fs.String("dir", "", "directory holding *.pipeline.toml descriptions")
	watch := fs.Bool("watch", false, "keep running and revalidate on change")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return core.Config{}, err
	}

	cfg := core.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = core.LoadConfig(*configPath); err != nil {
			return cfg, err
		}
	}
	// flags given on the command line win over the file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "dir":
			cfg.PipelinesDir = *dir
		case "watch":
			cfg.Watch = *watch
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	return cfg, nil
}

func run(args []string, stdout io.Writer, stop <-chan os.Signal) error {
	cfg, err := loadConfig(args, stdout)
	if err != nil {
		return err
	}
	if err := cfg.Apply(); err != nil {
		return err
	}

	library, err := assets.NewPipelineLibrary()
	if err != nil {
		return err
	}
	defer library.Shutdown()

	var events <-chan assets.ReloadEvent
	if cfg.Watch {
		events = library.Subscribe()
	}

	loadErr := library.Initialize(cfg.PipelinesDir)
	for _, name := range library.Names() {
		set, _ := library.Get(name)
		fmt.Fprintf(stdout, "ok   %s (%s): %d attachments, %d subpasses, %d pipelines\n",
			name, set.Path, set.RenderPass.AttachmentCount(), set.RenderPass.SubpassCount(), len(set.Pipelines))
	}
	if loadErr != nil {
		fmt.Fprintf(stdout, "fail %s\n", loadErr)
	}
	if !cfg.Watch {
		return loadErr
	}

	core.LogInfo("watching %s, interrupt to stop", cfg.PipelinesDir)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch {
			case ev.Err != nil:
				fmt.Fprintf(stdout, "fail %s\n", ev.Err)
			case ev.Removed:
				fmt.Fprintf(stdout, "gone %s (%s)\n", ev.Name, ev.Path)
			default:
				fmt.Fprintf(stdout, "ok   %s (%s)\n", ev.Name, ev.Path)
			}
		case <-stop:
			return nil
		}
	}
}
