package relay

import "sync"

// DefaultDedupeWindow is how many sequence numbers behind the newest one
// a Deduper remembers per initiator.
const DefaultDedupeWindow = 256

// DefaultMaxInitiators bounds how many initiators a Deduper tracks. The
// least recently active one is forgotten first.
const DefaultMaxInitiators = 1024

// Deduper remembers recently seen (initiator, sequence) pairs.
// Sequences older than the window are treated as already seen.
type Deduper struct {
	mu         sync.Mutex
	window     uint64
	maxStreams int
	clock      uint64
	streams    map[string]*stream
}

type stream struct {
	newest   uint64
	lastUsed uint64
	seen     map[uint64]struct{}
}

// NewDeduper creates a Deduper; window <= 0 selects DefaultDedupeWindow.
func NewDeduper(window int) *Deduper {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	return &Deduper{
		window:     uint64(window),
		maxStreams: DefaultMaxInitiators,
		streams:    make(map[string]*stream),
	}
}

// Seen records the pair and reports whether it had been recorded before.
// Messages without an initiator or sequence are never considered duplicates.
func (d *Deduper) Seen(initiator string, seq uint64) bool {
	if initiator == "" || seq == 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.clock++
	s, ok := d.streams[initiator]
	if !ok {
		if len(d.streams) >= d.maxStreams {
			d.evictOldest()
		}
		s = &stream{seen: make(map[uint64]struct{})}
		d.streams[initiator] = s
	}
	s.lastUsed = d.clock

	if s.newest >= d.window && seq <= s.newest-d.window {
		return true
	}
	if _, dup := s.seen[seq]; dup {
		return true
	}
	s.seen[seq] = struct{}{}

	if seq > s.newest {
		s.newest = seq
		if s.newest > d.window {
			floor := s.newest - d.window
			for old := range s.seen {
				if old <= floor {
					delete(s.seen, old)
				}
			}
		}
	}
	return false
}

func (d *Deduper) evictOldest() {
	var (
		oldest string
		used   uint64
		found  bool
	)
	for id, s := range d.streams {
		if !found || s.lastUsed < used {
			oldest, used, found = id, s.lastUsed, true
		}
	}
	if found {
		delete(d.streams, oldest)
	}
}

// Reset forgets everything.
func (d *Deduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams = make(map[string]*stream)
}
