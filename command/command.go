// Package command defines the control operations accepted from MQTT and
// the local event pipe.
package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Op names a control operation.
type Op string

const (
	OpTag     Op = "tag"     // simulate a card arriving: arg is the hex UID
	OpRemove  Op = "remove"  // simulate the current card being taken away
	OpPlay    Op = "play"    // play a local file
	OpStream  Op = "stream"  // queue a URL and start the stream
	OpNext    Op = "next"    // skip the current stream entry
	OpStop    Op = "stop"    // stop file and stream playback
	OpYouTube Op = "youtube" // download a YouTube URL
)

// Command is one control request.
type Command struct {
	Op  Op     `json:"op"`
	Arg string `json:"arg,omitempty"`
}

// needsArg lists the ops that cannot run without an argument.
var needsArg = map[Op]bool{
	OpTag:     true,
	OpPlay:    true,
	OpStream:  true,
	OpYouTube: true,
}

var aliases = map[string]Op{
	"rfid":     OpTag,
	"tag":      OpTag,
	"remove":   OpRemove,
	"play":     OpPlay,
	"stream":   OpStream,
	"next":     OpNext,
	"skip":     OpNext,
	"stop":     OpStop,
	"youtube":  OpYouTube,
	"download": OpYouTube,
}

// Validate checks the op is known and has its argument.
func (c Command) Validate() error {
	if _, ok := aliases[string(c.Op)]; !ok {
		return fmt.Errorf("unknown command: %s", c.Op)
	}
	if needsArg[c.Op] && c.Arg == "" {
		return fmt.Errorf("%s requires an argument", c.Op)
	}
	return nil
}

// ParseLine parses a pipe command line.
// Command format:
//
//	tag <uid-hex>      - Card arrives (alias rfid)
//	remove             - Card removed
//	play <path>        - Play a local file
//	stream <url>       - Queue and start a stream
//	next               - Skip the current stream entry (alias skip)
//	stop               - Stop playback
//	youtube <url>      - Download a video (alias download)
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("empty command")
	}

	name, arg, _ := strings.Cut(line, " ")
	op, ok := aliases[strings.ToLower(name)]
	if !ok {
		return Command{}, fmt.Errorf("unknown command: %s", name)
	}

	cmd := Command{Op: op, Arg: strings.TrimSpace(arg)}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// ParseJSON decodes an MQTT payload. The op may come from the payload or,
// when the payload omits it, from the topic suffix passed as op.
func ParseJSON(op Op, payload []byte) (Command, error) {
	var cmd Command
	if len(strings.TrimSpace(string(payload))) > 0 {
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return Command{}, fmt.Errorf("decode command: %w", err)
		}
	}
	if cmd.Op == "" {
		cmd.Op = op
	}
	if mapped, ok := aliases[strings.ToLower(string(cmd.Op))]; ok {
		cmd.Op = mapped
	}
	if err := cmd.Validate(); err != nil {
		return Command{}, err
	}
	return cmd, nil
}
