// Command codplayerd runs the playback transport as a standalone
// daemon: it loads a config file, opens the audio device, connects to
// the message bus, and drives the Transport until told to quit or
// signalled.
package main

import (
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/codplayer/codplayer-go"
	"github.com/codplayer/codplayer-go/library"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.String("config", "", "path to the YAML config file")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	logger := codplayer.NewLogger(*debug)

	if *configPath == "" {
		logger.Error("--config is required")
		return 1
	}

	cfg, err := codplayer.LoadConfig(*configPath)
	if err != nil {
		logger.Error("loading config", "err", err)
		return 1
	}

	sink := codplayer.NewPortAudioSink(cfg.AudioDevice)

	var publisher codplayer.StatePublisher = codplayer.NopPublisher{}
	var bus *codplayer.NATSBus
	if cfg.BusURL != "" {
		bus, err = codplayer.DialNATSBus(cfg.BusURL, logger)
		if err != nil {
			logger.Error("connecting to bus", "err", err)
			return 1
		}
		defer bus.Close()
		publisher = bus
	}

	transport := codplayer.NewTransport(sink, publisher, cfg.QueueCapacity(), logger)
	if bus != nil {
		bus.SetQueryHandler(transport)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var commands <-chan codplayer.Command
	if bus != nil {
		commands = bus.Commands()
	} else {
		commands = make(chan codplayer.Command)
	}

	for {
		select {
		case <-sigCh:
			transport.Eject()
			return 0
		case cmd := <-commands:
			if cmd.Verb == "quit" {
				transport.Eject()
				return 0
			}
			dispatch(transport, cmd, cfg.LibraryRoot, logger)
		}
	}
}

func dispatch(t *codplayer.Transport, cmd codplayer.Command, libraryRoot string, logger *codplayer.Logger) {
	switch cmd.Verb {
	case "play":
		t.Play()
	case "pause":
		t.Pause()
	case "play_pause":
		t.PlayPause()
	case "stop":
		t.Stop()
	case "next":
		t.Next()
	case "prev":
		t.Prev()
	case "eject":
		t.Eject()
	case "disc":
		loadDisc(t, libraryRoot, cmd.Arg, logger)
	case "set_ripping_progress":
		var progress *int
		if cmd.Arg != "" {
			p, err := strconv.Atoi(cmd.Arg)
			if err != nil {
				logger.Warn("invalid rip progress", "arg", cmd.Arg, "err", err)
				return
			}
			progress = &p
		}
		t.SetRippingProgress(progress, "")
	default:
		logger.Warn("unrecognised command", "verb", cmd.Verb, "arg", cmd.Arg)
	}
}

// loadDisc implements the `disc <id>` command (spec §6): look up the
// disc record in the library and install a DiscSource over it. A disc
// still being ripped is loadable immediately — DiscSource tolerates
// its data file being absent or short as long as RipState reports a
// rip in progress.
func loadDisc(t *codplayer.Transport, libraryRoot, externalID string, logger *codplayer.Logger) {
	disc, err := library.LoadDisc(libraryRoot, externalID)
	if err != nil {
		logger.Error("loading disc", "disc_id", externalID, "err", err)
		return
	}
	internal, err := library.InternalID(disc.DiscID)
	if err != nil {
		logger.Error("resolving disc path", "disc_id", externalID, "err", err)
		return
	}
	dataPath := library.DataFile(libraryRoot, internal)
	isRipping := func() bool {
		return t.RipState().State != codplayer.RipInactive
	}
	src := codplayer.NewDiscSource(disc, dataPath, 0, isRipping, logger)
	t.NewSource(src, 0)
}
