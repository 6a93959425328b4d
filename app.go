package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"piserver/audio"
	"piserver/command"
	"piserver/history"
	"piserver/indicator"
	"piserver/library"
	"piserver/mqtt"
	"piserver/relay"
	"piserver/tag"
)

const pingInterval = 120 * time.Second

// filePlayer plays local files one at a time.
type filePlayer interface {
	PlayAsync(ctx context.Context, path string, done func(msg string, err error))
	Stop() string
}

// downloader fetches YouTube media to disk.
type downloader interface {
	DownloadAsync(ctx context.Context, url string, done func(job, path string, err error)) string
}

// publisher sends node status messages.
type publisher interface {
	StatusTopic(name string) string
	PublishJSON(topic string, v any)
}

// tagStatus is published when a card arrives or leaves.
type tagStatus struct {
	UID   string       `json:"uid"`
	Known bool         `json:"known"`
	Kind  library.Kind `json:"kind,omitempty"`
	Label string       `json:"label,omitempty"`
}

// resultStatus is published when a playback or download finishes.
type resultStatus struct {
	Job    string `json:"job,omitempty"`
	Target string `json:"target"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// App holds the application state and dependencies.
type App struct {
	cfg       *Config
	logger    *zap.Logger
	mqtt      *mqtt.Client
	pub       publisher
	player    filePlayer
	stream    audio.Stream
	youtube   downloader
	library   *library.Library
	history   *history.Store
	indicator indicator.Indicator
	amp       *relay.Switch
	ctx       context.Context

	mu            sync.Mutex
	current       tag.UID
	fileRelease   func()
	streamRelease func()
}

// Dispatch runs one control command. MQTT messages, the event pipe and
// the rotary encoder all end up here.
func (app *App) Dispatch(cmd command.Command) {
	app.logger.Info("Command", zap.String("op", string(cmd.Op)), zap.String("arg", cmd.Arg))

	switch cmd.Op {
	case command.OpTag:
		uid, err := tag.Parse(cmd.Arg)
		if err != nil {
			app.logger.Warn("Bad tag argument", zap.String("arg", cmd.Arg), zap.Error(err))
			return
		}
		app.handleTag(uid)
	case command.OpRemove:
		app.mu.Lock()
		uid := app.current.Clone()
		app.mu.Unlock()
		if !uid.IsZero() {
			app.handleRemoved(uid)
		}
	case command.OpPlay:
		app.playFile(cmd.Arg, cmd.Arg)
	case command.OpStream:
		app.playStream(cmd.Arg)
	case command.OpNext:
		app.next()
	case command.OpStop:
		app.stopAll()
	case command.OpYouTube:
		app.download(cmd.Arg, false)
	default:
		app.logger.Warn("Unhandled command", zap.String("op", string(cmd.Op)))
	}
}

func (app *App) handleTag(uid tag.UID) {
	app.mu.Lock()
	app.current = uid.Clone()
	app.mu.Unlock()

	app.indicator.TagPresent(uid)
	entry, found := app.library.Lookup(uid)

	app.pub.PublishJSON(app.pub.StatusTopic("tag"), tagStatus{
		UID:   uid.String(),
		Known: found,
		Kind:  entry.Kind,
		Label: entry.Label,
	})
	app.record(history.Event{Kind: history.KindTag, UID: uid.String(), Target: entry.Target})

	if !found {
		app.logger.Info("Tag not in library", zap.String("uid", uid.String()))
		return
	}
	app.logger.Info("Tag read", zap.String("uid", uid.String()), zap.String("kind", string(entry.Kind)), zap.String("target", entry.Target))

	switch entry.Kind {
	case library.KindFile:
		app.playFile(entry.Target, entry.Label)
	case library.KindStream:
		app.playStream(entry.Target)
	case library.KindYouTube:
		app.download(entry.Target, true)
	}
}

func (app *App) handleRemoved(uid tag.UID) {
	app.mu.Lock()
	if app.current.Equal(uid) {
		app.current = nil
	}
	app.mu.Unlock()

	app.logger.Info("Tag removed", zap.String("uid", uid.String()))
	app.pub.PublishJSON(app.pub.StatusTopic("tag/removed"), tagStatus{UID: uid.String()})
	app.record(history.Event{Kind: history.KindRemoved, UID: uid.String()})

	if app.cfg.StopOnRemove {
		app.stopAll()
	}
}

func (app *App) playFile(path, label string) {
	if label == "" {
		label = path
	}
	release := app.holdAmp()

	app.mu.Lock()
	if app.fileRelease != nil {
		app.fileRelease()
	}
	app.fileRelease = release
	app.mu.Unlock()

	app.indicator.Playing(label)
	app.player.PlayAsync(app.ctx, path, func(msg string, err error) {
		release()
		if errors.Is(err, context.Canceled) {
			return
		}
		app.report("playback", history.KindPlayback, "", path, msg, err)
	})
}

func (app *App) playStream(url string) {
	if err := app.stream.Add(url); err != nil {
		app.report("playback", history.KindStream, "", url, "", err)
		return
	}

	app.mu.Lock()
	if app.streamRelease == nil {
		app.streamRelease = app.holdAmp()
	}
	app.mu.Unlock()

	app.indicator.Playing(url)
	if err := app.stream.Play(app.ctx); err != nil {
		app.releaseStream()
		app.report("playback", history.KindStream, "", url, "", err)
	}
}

// onStreamEnd is called for every stream entry that finished. The relay is
// released only if the queue is still empty while mu is held, so a
// concurrent playStream either sees the hold or takes a new one.
func (app *App) onStreamEnd(url, msg string, err error) {
	app.report("playback", history.KindStream, "", url, msg, err)

	app.mu.Lock()
	var release func()
	if len(app.stream.Queue()) == 0 {
		release = app.streamRelease
		app.streamRelease = nil
	}
	app.mu.Unlock()
	if release != nil {
		release()
	}
}

func (app *App) next() {
	if err := app.stream.Next(); err != nil {
		app.logger.Warn("Stream next", zap.Error(err))
	}
}

func (app *App) stopAll() {
	msg := app.player.Stop()
	if _, err := app.stream.Stop(); err != nil {
		app.logger.Warn("Stream stop", zap.Error(err))
	}
	app.releaseStream()
	app.logger.Info(msg)
	app.indicator.Idle()
}

func (app *App) download(url string, play bool) {
	job := app.youtube.DownloadAsync(app.ctx, url, func(job, path string, err error) {
		if errors.Is(err, context.Canceled) {
			return
		}
		app.report("download", history.KindDownload, job, url, path, err)
		if err == nil && play {
			app.playFile(path, url)
		}
	})
	app.pub.PublishJSON(app.pub.StatusTopic("download"), resultStatus{Job: job, Target: url, Status: "started"})
}

// report publishes and records the outcome of a playback or download.
func (app *App) report(topic string, kind history.Kind, job, target, result string, err error) {
	status := resultStatus{Job: job, Target: target, Status: "done", Result: result}
	if err != nil {
		status.Status = "failed"
		status.Error = err.Error()
		app.logger.Warn("Operation failed", zap.String("kind", string(kind)), zap.String("target", target), zap.Error(err))
		app.indicator.Failed(err.Error())
	} else {
		app.logger.Info(result)
		app.indicator.Idle()
	}

	app.pub.PublishJSON(app.pub.StatusTopic(topic), status)
	app.record(history.Event{Kind: kind, Target: target, Result: result, Failed: err != nil})
}

func (app *App) record(e history.Event) {
	if err := app.history.Record(app.ctx, e); err != nil {
		app.logger.Warn("Record history", zap.Error(err))
	}
}

func (app *App) holdAmp() func() {
	release, err := app.amp.Hold()
	if err != nil {
		app.logger.Warn("Amplifier relay", zap.Error(err))
	}
	return release
}

func (app *App) releaseStream() {
	app.mu.Lock()
	release := app.streamRelease
	app.streamRelease = nil
	app.mu.Unlock()
	if release != nil {
		release()
	}
}

func (app *App) onMQTTConnect() {
	for _, topic := range []string{app.mqtt.ControlWildcard(), mqtt.BroadcastTopic("library/update")} {
		if err := app.mqtt.Subscribe(topic); err != nil {
			app.logger.Warn("Subscribe", zap.String("topic", topic), zap.Error(err))
		}
	}
	app.indicator.Idle()
}

func (app *App) onMQTTDisconnect() {
	app.indicator.ConnectionLost()
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic == mqtt.BroadcastTopic("library/update") {
		app.logger.Info("Received library update message")
		if err := app.library.FetchFromAPI(app.ctx); err != nil {
			app.logger.Warn("Fetch library", zap.Error(err))
		}
		return
	}

	op, ok := app.mqtt.ControlOp(topic)
	if !ok {
		return
	}
	cmd, err := command.ParseJSON(command.Op(op), payload)
	if err != nil {
		app.logger.Warn("Bad control message", zap.String("topic", topic), zap.Error(err))
		return
	}
	app.Dispatch(cmd)
}

// onRotaryTurn skips forward in the stream on a clockwise turn.
func (app *App) onRotaryTurn(delta int) {
	if delta > 0 {
		app.Dispatch(command.Command{Op: command.OpNext})
	}
}

func (app *App) onRotaryPress() {
	app.Dispatch(command.Command{Op: command.OpStop})
}

func (app *App) pingSender() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.pub.PublishJSON(app.pub.StatusTopic("ping"), map[string]string{"status": "ok"})
		}
	}
}
