package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmerrifield20/ProvenanceLedger/internal/ledger"
)

// Snapshot is an insertion-ordered mapping of asset id to entry. It marshals
// to a single JSON object whose keys appear in insertion order.
type Snapshot struct {
	ids     []string
	entries map[string]ledger.Entry
}

// NewSnapshot returns an empty Snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string]ledger.Entry)}
}

// Get returns a copy of the entry stored under id.
func (s *Snapshot) Get(id string) (ledger.Entry, bool) {
	e, ok := s.entries[id]
	if !ok {
		return ledger.Entry{}, false
	}
	return e.Clone(), true
}

// Put stores a copy of e under id, keeping the position of an existing id.
func (s *Snapshot) Put(id string, e ledger.Entry) {
	if _, ok := s.entries[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.entries[id] = e.Clone()
}

// IDs returns the ids in insertion order.
func (s *Snapshot) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.ids) }

// Assets returns every projection in insertion order.
func (s *Snapshot) Assets() []ledger.Asset {
	out := make([]ledger.Asset, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.entries[id].Asset)
	}
	return out
}

// clone copies the index. Stored entries are private copies that are never
// mutated in place, so they can be shared between snapshots.
func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		ids:     append([]string(nil), s.ids...),
		entries: make(map[string]ledger.Entry, len(s.entries)),
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	return c
}

// MarshalJSON implements json.Marshaler.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.entries[id])
		if err != nil {
			return nil, fmt.Errorf("marshal entry %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. Key order in data becomes the
// insertion order. Every key must be a trimmed, non-empty id that appears once
// and equals the asset id of its entry.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("snapshot: expected JSON object")
	}
	next := NewSnapshot()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected string key")
		}
		if id == "" || id != strings.TrimSpace(id) {
			return fmt.Errorf("snapshot: invalid key %q", id)
		}
		if _, dup := next.entries[id]; dup {
			return fmt.Errorf("snapshot: duplicate key %q", id)
		}
		var e ledger.Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("snapshot: entry %s: %w", id, err)
		}
		if e.Asset.ID != id {
			return fmt.Errorf("snapshot: key %q holds asset %q", id, e.Asset.ID)
		}
		next.Put(id, e)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = *next
	return nil
}

// Load decodes a snapshot from r.
func Load(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap := NewSnapshot()
	if len(bytes.TrimSpace(data)) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Save encodes snap to w as indented JSON followed by a newline.
func Save(w io.Writer, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent snapshot: %w", err)
	}
	out.WriteByte('\n')
	_, err = w.Write(out.Bytes())
	return err
}

// SaveFile writes snap to path atomically: the data goes to a temporary file
// in the same directory, which is synced and then renamed over path.
func SaveFile(path string, snap *Snapshot) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if err := Save(tmp, snap); err != nil {
		tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
