// Package audit implements the platform's tamper-evident operations log.
// It is the only component that appends entries; every other engine
// submits through Logger.Append rather than writing records itself. The
// chain construction generalizes the teacher's single-process
// cmd/pulse-sensor-proxy/audit.go hash-chained logger (SHA-256 over
// canonical JSON plus the previous hash, a monotonic sequence number,
// sensitive-field masking) into a concurrent-safe service whose records
// are also framed to disk in the segmented layout the specification
// requires.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	rtccerrors "github.com/aldric144/rtcc-platform/internal/errors"
)

// Severity grades the operational significance of an entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var sensitiveFieldNames = map[string]struct{}{
	"password":   {},
	"token":      {},
	"api_key":    {},
	"secret":     {},
	"credential": {},
}

// Entry is one append-only, hash-chained audit record.
type Entry struct {
	EntryID         string         `json:"entry_id"`
	Timestamp       time.Time      `json:"timestamp"`
	ActionKind      string         `json:"action_kind"`
	Severity        Severity       `json:"severity"`
	Source          string         `json:"source"`
	Description     string         `json:"description"`
	Details         map[string]any `json:"details,omitempty"`
	SessionID       string         `json:"session_id,omitempty"`
	PreviousHash    string         `json:"previous_hash"`
	EntryHash       string         `json:"entry_hash"`
}

// canonicalForHash returns the byte sequence the hash is computed over:
// every field except EntryHash itself, serialized deterministically.
func (e Entry) canonicalForHash() ([]byte, error) {
	clone := e
	clone.EntryHash = ""
	return json.Marshal(clone)
}

// maskDetails replaces sensitive field values with a fixed redaction
// marker before the entry is ever hashed or persisted.
func maskDetails(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	masked := make(map[string]any, len(details))
	for k, v := range details {
		if _, sensitive := sensitiveFieldNames[k]; sensitive {
			masked[k] = "***REDACTED***"
			continue
		}
		masked[k] = v
	}
	return masked
}

// Logger is the sole writer of the append-only audit log.
type Logger struct {
	mu       sync.Mutex
	prevHash string
	sequence uint64
	segment  *Segment
}

// NewLogger creates a Logger writing to the given segment. previousHash
// should be the last hash from a prior segment (empty for a fresh chain).
func NewLogger(segment *Segment, previousHash string) *Logger {
	return &Logger{segment: segment, prevHash: previousHash}
}

// Append hashes, chains, and persists a new entry. It never returns an
// integrity error on the write path: a chain that cannot be extended
// because of disk/segment failure surfaces as a dependency-transient
// error, and a detected chain corruption on append (the previous hash
// in memory no longer matching the segment's last persisted hash) is a
// true invariant violation, so it panics per the design's error model.
func (l *Logger) Append(e Entry) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.EntryID == "" {
		e.EntryID = ulid.Make().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	} else {
		e.Timestamp = e.Timestamp.UTC()
	}
	e.Details = maskDetails(e.Details)
	e.PreviousHash = l.prevHash
	l.sequence++

	payload, err := e.canonicalForHash()
	if err != nil {
		return Entry{}, rtccerrors.Wrap(rtccerrors.KindDependencyTransient, "failed to marshal audit entry", err)
	}

	sum := sha256.Sum256(append([]byte(l.prevHash), payload...))
	e.EntryHash = hex.EncodeToString(sum[:])

	if l.segment.LastHash() != l.prevHash {
		log.Error().Msg("audit chain mismatch detected before append")
		panic("audit: chain corruption detected on append")
	}

	if err := l.segment.WriteEntry(e); err != nil {
		return Entry{}, rtccerrors.Wrap(rtccerrors.KindDependencyTransient, "failed to persist audit entry", err)
	}

	l.prevHash = e.EntryHash
	return e, nil
}

// VerifyChain walks entries in order and confirms each one's
// previous_hash matches the prior entry's hash and its own hash recomputes
// correctly. It never panics — callers use the result to decide whether to
// place the process in read-only mode.
func VerifyChain(entries []Entry) error {
	prev := ""
	for i, e := range entries {
		if e.PreviousHash != prev {
			return rtccerrors.New(rtccerrors.KindIntegrity,
				fmt.Sprintf("entry %d (%s): previous_hash %q does not match prior entry hash %q", i, e.EntryID, e.PreviousHash, prev))
		}
		payload, err := e.canonicalForHash()
		if err != nil {
			return rtccerrors.Wrap(rtccerrors.KindIntegrity, "failed to canonicalize entry for verification", err)
		}
		sum := sha256.Sum256(append([]byte(e.PreviousHash), payload...))
		recomputed := hex.EncodeToString(sum[:])
		if recomputed != e.EntryHash {
			return rtccerrors.New(rtccerrors.KindIntegrity,
				fmt.Sprintf("entry %d (%s): recomputed hash %q does not match stored hash %q", i, e.EntryID, recomputed, e.EntryHash))
		}
		prev = e.EntryHash
	}
	return nil
}
