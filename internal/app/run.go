package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michd/mmpd/internal/adapters"
	"github.com/michd/mmpd/internal/configparser"
	"github.com/michd/mmpd/internal/dispatch"
	"github.com/michd/mmpd/internal/domain"
	"github.com/michd/mmpd/internal/midiadapter"
	"github.com/michd/mmpd/internal/miditracker"
	"github.com/michd/mmpd/internal/runtime"
	"github.com/DavidGamba/go-getoptions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	commit    string
	version   string
	buildTime string
)

// ingestQueueSize bounds the channel between the MIDI source's callback
// goroutine and the single dispatcher goroutine, per spec §5: "Ingest must
// never block on the dispatcher; if the queue is full, new messages are
// dropped with a logged warning."
const ingestQueueSize = 256

// Run is the CLI entry point, mirroring src/pulsekontrol.go's Run(): parse
// flags, handle list/version/help, load configuration, then run the event
// loop until a Control::exit signal or a fatal error. The returned int is
// the process exit code (spec §6.5).
func Run(args []string) int {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opt := getoptions.New()
	opt.Self("", "Turn a MIDI controller into a context-aware macro pad")
	opt.HelpSynopsisArg("", "")
	opt.HelpCommand("help", opt.Alias("h"), opt.Description("Show this help"))
	opt.Bool("list-midi-devices", false, opt.Alias("l"), opt.Description("List MIDI input devices"))
	opt.Bool("monitor", false, opt.Alias("m"), opt.Description("Print every incoming MIDI message instead of dispatching macros"))
	opt.Bool("version", false, opt.Alias("v"), opt.Description("Show version"))
	configPath := opt.StringOptional("config", "", opt.Description("Configuration file path (default: ./config.yaml, then ~/.config/mmpd/config.yaml)"))
	midiPort := opt.StringOptional("midi-port", "", opt.Description("MIDI input port name (default: first available)"))
	remaining, err := opt.Parse(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	subcommand := ""
	if len(remaining) > 0 {
		subcommand = remaining[0]
	}

	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		return 0
	}
	if opt.Called("version") {
		fmt.Printf("Version %s, commit %s, built on %s\n", version, commit, buildTime)
		return 0
	}
	if opt.Called("list-midi-devices") || subcommand == "list-midi-devices" {
		if err := midiadapter.List(); err != nil {
			log.Error().Err(err).Msg("failed to list MIDI devices")
			return 1
		}
		return 0
	}

	source, path, err := LoadSource(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("configuration error")
		return 1
	}

	cfg, err := configparser.Parse(source)
	if err != nil {
		if errs, ok := err.(configparser.Errors); ok {
			for _, e := range errs {
				log.Error().Msgf("%s", e.Error())
			}
		} else {
			log.Error().Err(err).Msg("configuration error")
		}
		return 1
	}
	if cfg.TotalMacros() == 0 {
		log.Error().Msg("configuration must declare at least one macro, in scopes or global_macros")
		return 1
	}
	log.Info().Str("path", path).Msg("Loaded configuration")

	configManager := NewConfigManager(cfg, path)

	portName := *midiPort
	if portName == "" {
		names, err := midiadapter.ListDevices()
		if err != nil || len(names) == 0 {
			log.Error().Err(err).Msg("no MIDI input devices found")
			return 1
		}
		portName = names[0]
	}

	if opt.Called("monitor") || subcommand == "monitor" {
		return runMonitor(portName)
	}

	return runDispatchLoop(portName, configManager)
}

func runMonitor(portName string) int {
	src, err := midiadapter.Open(log.Logger, portName)
	if err != nil {
		log.Error().Err(err).Msg("failed to open MIDI input")
		return 1
	}
	defer src.Close()

	monitor := dispatch.NewMonitor(log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}))
	if err := src.Listen(monitor.Observe); err != nil {
		log.Error().Err(err).Msg("failed to listen on MIDI input")
		return 1
	}

	waitForSignal()
	return 0
}

// runDispatchLoop owns the MIDI handle, the ingest queue, and the single
// dispatcher goroutine, and reacts to runtime.Signal between cycles, per
// spec §5 and §9 ("the event-loop owner interprets them between action
// sequences").
func runDispatchLoop(portName string, configManager *ConfigManager) int {
	tracker := miditracker.New()
	d := dispatch.New(
		log.Logger,
		tracker,
		adapters.NewXdotoolWindowProbe(log.Logger),
		adapters.XdotoolKeySynth{},
		adapters.XdotoolTextSynth{},
		adapters.OSShellRunner{},
		adapters.RealSleeper{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		src, err := midiadapter.Open(log.Logger, portName)
		if err != nil {
			log.Error().Err(err).Msg("failed to open MIDI input")
			return 1
		}

		queue := make(chan domain.Message, ingestQueueSize)
		if err := src.Listen(func(msg domain.Message) {
			select {
			case queue <- msg:
			default:
				log.Warn().Msg("ingest queue full, dropping MIDI message")
			}
		}); err != nil {
			src.Close()
			log.Error().Err(err).Msg("failed to listen on MIDI input")
			return 1
		}

		sig, loopErr := drive(ctx, d, configManager, queue)
		src.Close()

		if loopErr != nil {
			log.Error().Err(loopErr).Msg("fatal dispatch loop error")
			return 1
		}

		switch sig {
		case runtime.SignalExit:
			return 0
		case runtime.SignalReloadMacros:
			if err := configManager.Reload(configparser.Parse); err != nil {
				log.Warn().Err(err).Msg("reload_macros failed, keeping previous configuration")
				continue
			}
			if configManager.Get().TotalMacros() == 0 {
				// Reloading into a configuration with no macros at all is
				// a deliberate way to stop the daemon, not an error (spec
				// §7: "reload_macros success with zero resulting macros
				// exits cleanly; this is by design").
				log.Info().Msg("reload_macros produced zero macros, exiting")
				return 0
			}
			continue
		case runtime.SignalRestart:
			log.Info().Msg("restarting MIDI input")
			continue
		default:
			return 0
		}
	}
}

// drive reads from queue until an OS signal, a control signal other than
// "none" fires, or the context is cancelled.
func drive(ctx context.Context, d *dispatch.Dispatcher, configManager *ConfigManager, queue chan domain.Message) (runtime.Signal, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case msg := <-queue:
			cfg := configManager.Get()
			sig := d.Dispatch(ctx, cfg, msg)
			if sig != runtime.SignalNone {
				return sig, nil
			}
		case s := <-sigChan:
			log.Info().Msgf("received signal %s, shutting down", s)
			return runtime.SignalExit, nil
		case <-ctx.Done():
			return runtime.SignalExit, nil
		}
	}
}

func waitForSignal() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
}
