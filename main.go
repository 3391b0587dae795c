package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"
	log "github.com/sirupsen/logrus"
	"github.com/thejerf/suture/v4"

	"github.com/intio/lwm/internal/config"
	"github.com/intio/lwm/internal/wm"
	"github.com/intio/lwm/internal/x11"
)

var version string

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lwm [-d] [-r] [-R] [-v] [-l addr] [config.toml]")
}

type flags struct {
	debug, replace bool
	// requireRandr refuses to fall back to Xinerama.
	requireRandr bool
	version      bool
	listenAddr   *string
	configPath   string
}

func parseFlags(argv []string) (flags, error) {
	var f flags
	opts, optind, err := getopt.Getopts(argv, "drRvl:")
	if err != nil {
		return f, err
	}
	for _, opt := range opts {
		switch opt.Option {
		case 'd':
			f.debug = true
		case 'r':
			f.replace = true
		case 'R':
			f.requireRandr = true
		case 'v':
			f.version = true
		case 'l':
			addr := opt.Value
			f.listenAddr = &addr
		}
	}
	switch args := argv[optind:]; len(args) {
	case 0:
	case 1:
		f.configPath = args[0]
	default:
		return f, errors.New("too many arguments")
	}
	return f, nil
}

func main() {
	os.Exit(run())
}

func run() int {
	f, err := parseFlags(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		return 1
	}
	if f.version {
		fmt.Println("lwm", versionString())
		return 0
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if f.debug {
		log.SetLevel(log.DebugLevel)
	}
	log.WithField("version", versionString()).Info("starting")

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if f.listenAddr != nil {
		cfg.API.Listen = *f.listenAddr
	}

	sess, err := x11.Open(x11.Options{
		RequireRandr: f.requireRandr,
		Font:         cfg.Appearance.StatusBarFont,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer sess.Close()

	w := wm.New(sess, cfg, wm.Options{Replace: f.replace, Screen: sess.ScreenNumber()})
	if err := w.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer w.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.API.Listen != "" {
		sup := suture.NewSimple("lwm")
		sup.Add(NewAPIServer(w, cfg.API.Listen))
		sup.ServeBackground(ctx)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, wm.ErrQuit) {
		log.WithError(err).Error("event loop stopped")
		return 1
	}
	log.Info("exiting")
	return 0
}

func versionString() string {
	if version == "" {
		return "devel"
	}
	return version
}
