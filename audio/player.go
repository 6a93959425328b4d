package audio

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"piserver/logging"
)

// process is one running player invocation.
type process struct {
	cmd    *exec.Cmd
	killed bool
}

// Player plays local files, one at a time, with an external command.
type Player struct {
	command string
	args    []string
	logger  *zap.Logger

	mu  sync.Mutex
	cur *process
}

// NewPlayer creates a Player from the config.
func NewPlayer(cfg Config, logger *zap.Logger) (*Player, error) {
	command, err := resolveCommand(cfg.Command)
	if err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger).Named("player")
	logger.Info("Audio player", zap.String("command", command), zap.Strings("args", cfg.Args))

	return &Player{
		command: command,
		args:    cfg.Args,
		logger:  logger,
	}, nil
}

// Play plays path and blocks until the player exits. A playback ended by
// Stop, or by a later Play, is not an error.
func (p *Player) Play(ctx context.Context, path string) (string, error) {
	args := append(append([]string(nil), p.args...), path)
	cmd := exec.CommandContext(ctx, p.command, args...)
	proc := &process{cmd: cmd}

	p.mu.Lock()
	p.killLocked()
	if err := cmd.Start(); err != nil {
		p.mu.Unlock()
		return "", fmt.Errorf("start %s: %w", p.command, err)
	}
	p.cur = proc
	p.mu.Unlock()

	p.logger.Info("Playing", zap.String("path", path))
	err := cmd.Wait()

	p.mu.Lock()
	if p.cur == proc {
		p.cur = nil
	}
	killed := proc.killed
	p.mu.Unlock()

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err != nil && !killed {
		return "", fmt.Errorf("play %s: %w", path, err)
	}
	return finishedMessage(path), nil
}

// PlayAsync starts playback in the background and reports through done.
func (p *Player) PlayAsync(ctx context.Context, path string, done func(msg string, err error)) {
	go func() {
		msg, err := p.Play(ctx, path)
		if done != nil {
			done(msg, err)
		}
	}()
}

// Stop kills the current playback, if any.
func (p *Player) Stop() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
	return StoppedMessage
}

// Playing reports whether a player process is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil
}

func (p *Player) killLocked() {
	if p.cur == nil {
		return
	}
	p.cur.killed = true
	if p.cur.cmd.Process != nil {
		if err := p.cur.cmd.Process.Kill(); err != nil {
			p.logger.Debug("kill player", zap.Error(err))
		}
	}
	p.cur = nil
}
