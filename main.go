package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"piserver/audio"
	"piserver/eventpipe"
	"piserver/history"
	"piserver/indicator"
	"piserver/library"
	"piserver/logging"
	"piserver/mqtt"
	"piserver/poller"
	"piserver/reader"
	"piserver/relay"
	"piserver/rotary"
	"piserver/youtube"
)

var myBuild string

func main() {
	cfgfile := pflag.String("cfg", "piserver.cfg", "Config file")
	debug := pflag.Bool("debug", false, "Enable debug logging")
	readOnce := pflag.Bool("read-once", false, "Wait for one tag, print its UID and exit")
	downloadURL := pflag.String("download", "", "Download a YouTube URL to the output path and exit")
	pflag.Parse()

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piserver: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(*debug || cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "piserver: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("piserver starting", zap.String("build", myBuild))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *readOnce:
		err = runReadOnce(ctx, cfg, logger)
	case *downloadURL != "":
		err = runDownload(ctx, cfg, *downloadURL, logger)
	default:
		err = run(ctx, cfg, logger)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("piserver", zap.Error(err))
	}
}

// runReadOnce waits for a card and prints its UID.
func runReadOnce(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	r, err := reader.New(cfg.Reader, logger)
	if err != nil {
		return fmt.Errorf("init reader: %w", err)
	}
	defer r.Close()

	uid, err := poller.WaitForChange(ctx, r, nil, cfg.Poller.Interval)
	if err != nil {
		return err
	}
	fmt.Println(uid.String())
	return nil
}

// runDownload fetches one URL and prints the output path.
func runDownload(ctx context.Context, cfg *Config, url string, logger *zap.Logger) error {
	path, err := youtube.New(cfg.YouTube, logger).Download(ctx, url)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

// run starts the daemon and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *Config, logger *zap.Logger) error {
	if cfg.ClientID == "" {
		return errors.New("client_id missing in config file")
	}

	appCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := &App{
		cfg:     cfg,
		logger:  logger,
		youtube: youtube.New(cfg.YouTube, logger),
		ctx:     appCtx,
	}

	var err error

	// Initialize indicator (LEDs, neopixels, screen)
	app.indicator, err = indicator.New(cfg.Indicator, logger)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}
	defer app.indicator.Release()
	app.indicator.ConnectionLost() // Start with connection lost state

	amp, err := relay.New(cfg.Relay)
	if err != nil {
		return fmt.Errorf("init relay: %w", err)
	}
	defer amp.Release()
	app.amp = relay.NewSwitch(amp)

	player, err := audio.NewPlayer(cfg.Audio, logger)
	if err != nil {
		return fmt.Errorf("init player: %w", err)
	}
	app.player = player

	app.stream, err = audio.NewStream(cfg.Audio, audio.StreamHandlers{OnEnd: app.onStreamEnd}, logger)
	if err != nil {
		return fmt.Errorf("init stream: %w", err)
	}
	defer app.stream.Close()

	app.history, err = history.Open(cfg.History)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer app.history.Close()

	// Initialize MQTT
	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	}, logger)
	if err != nil {
		return fmt.Errorf("init MQTT: %w", err)
	}
	app.pub = app.mqtt

	// Load the tag library from file, then fetch from API
	app.library, err = library.New(cfg.Library, logger)
	if err != nil {
		return fmt.Errorf("init library: %w", err)
	}
	app.library.SetUpdateCallback(func(count int) {
		app.pub.PublishJSON(app.pub.StatusTopic("library/update"), map[string]int{"entries": count})
	})
	if err := app.library.LoadFromFile(); err != nil {
		logger.Warn("Could not load tag file", zap.Error(err))
	}
	if err := app.library.FetchFromAPI(appCtx); err != nil {
		logger.Warn("Could not fetch library from API", zap.Error(err))
	}
	if err := app.library.Watch(appCtx); err != nil {
		logger.Warn("Could not watch tag file", zap.Error(err))
	}

	rot, err := rotary.New(cfg.Rotary, rotary.Handlers{
		OnTurn:  app.onRotaryTurn,
		OnPress: app.onRotaryPress,
	}, logger)
	if err != nil {
		return fmt.Errorf("init rotary: %w", err)
	}
	if rot != nil {
		defer rot.Release()
	}

	pipe, err := eventpipe.New(cfg.EventPipe, app.Dispatch, logger)
	if err != nil {
		return fmt.Errorf("init event pipe: %w", err)
	}
	if pipe != nil {
		go pipe.Start()
		defer pipe.Close()
	}

	r, err := reader.New(cfg.Reader, logger)
	if err != nil {
		return fmt.Errorf("init reader: %w", err)
	}
	defer r.Close()

	tags := poller.New(r, cfg.Poller, poller.Handlers{
		OnTag:     app.handleTag,
		OnRemoved: app.handleRemoved,
	}, logger)

	// Start background goroutines
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			logger.Warn("MQTT connect", zap.Error(err))
		}
	}()
	go app.pingSender()

	err = tags.Run(appCtx)

	logger.Info("Shutting down")
	app.stopAll()
	app.indicator.Shutdown()
	app.mqtt.Disconnect()
	return err
}
