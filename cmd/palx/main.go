package main

import (
	"context"
	"errors"
	"flag"
	"image"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"palx/internal/board"
	"palx/internal/buzzer"
	"palx/internal/charger"
	"palx/internal/config"
	appLog "palx/internal/log"
	"palx/internal/preview"
	"palx/internal/screens"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	logLevel   string
	once       bool
	renderOnly bool
	dump       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --log-level overrides the config file if provided.
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("unknown log level, using info", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)

	appLog.Info("palx starting", "version", "0.1.0")
	appLog.Info("effective config",
		"panel", conf.Display.Panel,
		"bus", conf.Display.Bus,
		"address", conf.Display.Address,
		"charger", conf.Charger.Enabled,
		"light_sensor", conf.LightSensor.Enabled,
		"buzzer", conf.Buzzer.Enabled,
		"refresh", conf.Screens.Refresh,
		"preview", conf.Screens.Preview,
		"once", flags.once,
		"render_only", flags.renderOnly,
		"dump", flags.dump,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("palx failed", err)
		cancel()
		os.Exit(1)
	}
	appLog.Info("palx exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	var loop *screens.Loop

	if flags.renderOnly {
		// No hardware at all: frames go to the emulator and the charger is
		// simulated.
		conf.Display.Bus = config.BusEmulator
		d, sink, err := board.OpenDisplay(conf.Display)
		if err != nil {
			return err
		}
		defer sink.Close()

		if loop, err = screens.New(d, conf.Screens); err != nil {
			return err
		}
		loop.Charger = charger.NewMock()
	} else {
		b, err := board.Open(ctx, conf)
		if err != nil {
			return err
		}
		defer func() {
			if err := b.Close(); err != nil {
				appLog.Warn("board close failed", "error", err.Error())
			}
		}()

		if loop, err = screens.New(b.Display, conf.Screens); err != nil {
			return err
		}
		loop.Charger = b.Charger
		loop.Buttons = b.Buttons
		if b.ADC != nil {
			loop.Analog = b.ADC
		}
		if b.Light != nil {
			loop.Light = b.Light
		}

		if b.Speaker != nil {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := buzzer.Play(ctx, b.Speaker, buzzer.Melody(conf.Buzzer.Melody))
				if err != nil && !errors.Is(err, context.Canceled) {
					appLog.Warn("start-up melody failed", "error", err.Error())
				}
			}()
			// The speaker pin must be idle before the board is closed.
			defer wg.Wait()
		}
	}

	loop.Preview = previewHook(conf.Screens, flags.dump)

	if err := loop.Splash(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if flags.once {
		return loop.Once(ctx)
	}
	return loop.Run(ctx)
}

// previewHook picks the frame mirror. -dump always writes the BMP.
func previewHook(s config.Screens, dump bool) func(image.Image) error {
	mode := s.Preview
	if dump {
		mode = config.PreviewBMP
	}
	switch mode {
	case config.PreviewTerminal:
		tty := preview.IsTerminal(os.Stdout)
		return preview.Terminal(os.Stdout, tty, preview.Width(os.Stdout))
	case config.PreviewBMP:
		appLog.Info("writing frames", "path", s.PreviewPath)
		return preview.BMP(s.PreviewPath)
	default:
		return nil
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/palx/config.yaml", "Path to config file")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Draw one status frame and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; do not touch any hardware")
	flag.BoolVar(&cfg.dump, "dump", false, "Write every frame to the preview BMP path")

	flag.Parse()

	return cfg
}
