// Package scratchpad implements the append-only investigation log: one
// NDJSON line per entry, durable on disk, plus an in-memory tiered
// mirror used to assemble prompt context, and a graceful-limit tracker
// that warns (never blocks) on over-use or retry-looking tool calls.
package scratchpad

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sreinvestigator/investigator/pkg/model"
)

// defaultToolLimits mirrors the teacher's per-tool soft caps, scaled to
// this domain's representative tool classes.
var defaultToolLimits = map[string]int{
	"aws-queryish":    10,
	"knowledge-search": 5,
	"web-search":      3,
}

const defaultToolLimit = 15

// Scratchpad is the append-only event log plus tiered result store for
// one investigation session. Not safe for concurrent use by multiple
// coordinators; the single-owner orchestration model (SPEC_FULL.md §5)
// guarantees exactly one writer.
type Scratchpad struct {
	mu sync.Mutex

	sessionID string
	file      *os.File
	writer    *bufio.Writer

	entries []model.ScratchpadEntry
	results map[string]*model.TieredResult // resultID -> tiered result
	order   []string                        // resultID insertion order, most-recent last

	toolCallCount map[string]int    // toolName -> count
	toolArgsSeen  map[string][]string // toolName -> history of canonical arg texts (for Jaccard check)
	toolLimits    map[string]int
}

// Config configures graceful per-tool call limits. A nil or zero-value
// ToolLimits falls back to defaultToolLimits.
type Config struct {
	ToolLimits map[string]int
}

// GenerateSessionID returns a monotonic, URL-safe session id: an
// ISO-8601 timestamp with ':' and '.' replaced by '-', plus a 6-character
// random hex suffix to disambiguate same-millisecond collisions.
func GenerateSessionID() string {
	ts := time.Now().UTC().Format(time.RFC3339Nano)
	ts = strings.ReplaceAll(ts, ":", "-")
	ts = strings.ReplaceAll(ts, ".", "-")
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%s-%x", ts, buf)
}

// New creates (or opens for append) the NDJSON file for sessionID under
// baseDir and returns a ready-to-use Scratchpad. The file is opened in
// append-only mode for the lifetime of the Scratchpad: it is never
// truncated or rewritten.
func New(baseDir, sessionID string, cfg Config) (*Scratchpad, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("scratchpad: creating base dir: %w", err)
	}
	path := filepath.Join(baseDir, sessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("scratchpad: opening session file: %w", err)
	}

	limits := defaultToolLimits
	if len(cfg.ToolLimits) > 0 {
		limits = cfg.ToolLimits
	}

	sp := &Scratchpad{
		sessionID:     sessionID,
		file:          f,
		writer:        bufio.NewWriter(f),
		results:       make(map[string]*model.TieredResult),
		toolCallCount: make(map[string]int),
		toolArgsSeen:  make(map[string][]string),
		toolLimits:    limits,
	}
	if err := sp.replayExisting(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return sp, nil
}

// replayExisting reconstructs the in-memory entry mirror from whatever
// is already on disk (supports restart-and-resume).
func (sp *Scratchpad) replayExisting() error {
	if _, err := sp.file.Seek(0, 0); err != nil {
		return fmt.Errorf("scratchpad: seeking to start for replay: %w", err)
	}
	scanner := bufio.NewScanner(sp.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry model.ScratchpadEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return fmt.Errorf("scratchpad: replaying corrupt line: %w", err)
		}
		sp.entries = append(sp.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scratchpad: scanning existing file: %w", err)
	}
	if _, err := sp.file.Seek(0, 2); err != nil {
		return fmt.Errorf("scratchpad: seeking to end after replay: %w", err)
	}
	return nil
}

// SessionID returns this scratchpad's session id.
func (sp *Scratchpad) SessionID() string { return sp.sessionID }

// Append writes one entry to the durable log and the in-memory mirror,
// flushing before returning. The on-disk file is never rewritten: this
// is the only write path.
func (sp *Scratchpad) Append(entry model.ScratchpadEntry) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return sp.appendLocked(entry)
}

func (sp *Scratchpad) appendLocked(entry model.ScratchpadEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.SessionID = sp.sessionID

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("scratchpad: marshaling entry: %w", err)
	}
	if _, err := sp.writer.Write(line); err != nil {
		return fmt.Errorf("scratchpad: writing entry: %w", err)
	}
	if err := sp.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("scratchpad: writing newline: %w", err)
	}
	if err := sp.writer.Flush(); err != nil {
		return fmt.Errorf("scratchpad: flushing: %w", err)
	}
	if err := sp.file.Sync(); err != nil {
		return fmt.Errorf("scratchpad: syncing: %w", err)
	}
	sp.entries = append(sp.entries, entry)
	return nil
}

// GetEntries returns a copy of the full in-memory entry history.
func (sp *Scratchpad) GetEntries() []model.ScratchpadEntry {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	out := make([]model.ScratchpadEntry, len(sp.entries))
	copy(out, sp.entries)
	return out
}

// Close flushes and closes the underlying file.
func (sp *Scratchpad) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if err := sp.writer.Flush(); err != nil {
		return err
	}
	return sp.file.Close()
}
