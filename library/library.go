// Package library maps tag UIDs to the media they trigger.
package library

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"piserver/logging"
	"piserver/tag"
)

// Kind says how an entry's target is handled.
type Kind string

const (
	KindFile    Kind = "file"    // local audio file
	KindStream  Kind = "stream"  // URL appended to the stream queue
	KindYouTube Kind = "youtube" // downloaded, then played
)

// Entry is one tag assignment.
type Entry struct {
	UID    string `json:"uid"`
	Kind   Kind   `json:"kind"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Config holds library settings.
type Config struct {
	File     string `yaml:"file"`    // tab-separated tag file
	URL      string `yaml:"url"`     // optional API endpoint returning a JSON entry list
	CAFile   string `yaml:"ca_file"` // optional CA for the API
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Watch    bool   `yaml:"watch"` // reload when the file changes on disk
}

// Library holds the tag assignments.
type Library struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	cfg      Config
	client   *http.Client
	logger   *zap.Logger
	onUpdate func(count int)
}

// New creates an empty Library.
func New(cfg Config, logger *zap.Logger) (*Library, error) {
	client, err := newHTTPClient(cfg.CAFile)
	if err != nil {
		return nil, err
	}
	return &Library{
		entries: make(map[string]Entry),
		cfg:     cfg,
		client:  client,
		logger:  logging.OrNop(logger).Named("library"),
	}, nil
}

func newHTTPClient(caFile string) (*http.Client, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	if caFile == "" {
		return client, nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA cert: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caCert)
	client.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool},
	}
	return client, nil
}

// SetUpdateCallback sets a callback to be called when the library is replaced.
func (l *Library) SetUpdateCallback(fn func(count int)) {
	l.onUpdate = fn
}

// Lookup finds the entry assigned to uid.
func (l *Library) Lookup(uid tag.UID) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[uid.String()]
	return e, ok
}

// Len returns the number of entries.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Assign adds or replaces an entry and saves the file.
func (l *Library) Assign(e Entry) error {
	norm, err := normalize(e)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.entries[norm.UID] = norm
	err = l.saveLocked()
	l.mu.Unlock()
	return err
}

func normalize(e Entry) (Entry, error) {
	uid, err := tag.Parse(e.UID)
	if err != nil {
		return Entry{}, err
	}
	e.UID = uid.String()
	switch e.Kind {
	case KindFile, KindStream, KindYouTube:
	case "":
		e.Kind = KindFile
	default:
		return Entry{}, fmt.Errorf("uid %s: unknown kind %q", e.UID, e.Kind)
	}
	if e.Target == "" {
		return Entry{}, fmt.Errorf("uid %s: empty target", e.UID)
	}
	return e, nil
}

// LoadFromFile loads the library from the tag file.
// Creates the file if it doesn't exist.
func (l *Library) LoadFromFile() error {
	if l.cfg.File == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.cfg.File), 0755); err != nil {
		return fmt.Errorf("create tag file directory: %w", err)
	}
	file, err := os.OpenFile(l.cfg.File, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open tag file: %w", err)
	}
	defer file.Close()

	entries, err := parse(file, l.logger)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()

	l.logger.Info("Loaded tag file", zap.String("path", l.cfg.File), zap.Int("entries", len(entries)))
	return nil
}

// parse reads "uid<TAB>kind<TAB>target[<TAB>label]" lines. Blank lines and
// lines starting with # are skipped; bad lines are logged and skipped.
func parse(r io.Reader, logger *zap.Logger) (map[string]Entry, error) {
	entries := make(map[string]Entry)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			logger.Warn("Skipping tag line", zap.Int("line", lineNo), zap.String("reason", "need uid, kind and target"))
			continue
		}
		e := Entry{UID: parts[0], Kind: Kind(parts[1]), Target: parts[2]}
		if len(parts) > 3 {
			e.Label = parts[3]
		}

		norm, err := normalize(e)
		if err != nil {
			logger.Warn("Skipping tag line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		entries[norm.UID] = norm
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read tag file: %w", err)
	}
	return entries, nil
}

// saveLocked writes the tag file through a temp file and rename.
func (l *Library) saveLocked() error {
	if l.cfg.File == "" {
		return nil
	}

	tmp := l.cfg.File + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	w := bufio.NewWriter(file)
	for _, e := range l.entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UID, e.Kind, e.Target, e.Label)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tmp, l.cfg.File); err != nil {
		return fmt.Errorf("rename tag file: %w", err)
	}
	return nil
}

// FetchFromAPI downloads the entry list from the configured URL, replaces
// the library with it and saves the tag file.
func (l *Library) FetchFromAPI(ctx context.Context) error {
	if l.cfg.URL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if l.cfg.Username != "" {
		req.SetBasicAuth(l.cfg.Username, l.cfg.Password)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch library: status %s", resp.Status)
	}

	var items []Entry
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("decode JSON: %w", err)
	}

	entries := make(map[string]Entry, len(items))
	for _, item := range items {
		norm, err := normalize(item)
		if err != nil {
			l.logger.Warn("Skipping API entry", zap.Error(err))
			continue
		}
		entries[norm.UID] = norm
	}

	l.mu.Lock()
	l.entries = entries
	err = l.saveLocked()
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.logger.Info("Fetched library", zap.Int("entries", len(entries)))
	if l.onUpdate != nil {
		l.onUpdate(len(entries))
	}
	return nil
}
