package llmstruct

import "sync"

// NeutralBias is the starting bias for a (surface, category) pair that has
// never received feedback. Biases above neutral shift analyzer confidence
// up, below neutral shift it down.
const NeutralBias = 0.5

// ConfidenceStore maps (surface, category) to a running confidence bias in
// [0, 1]. It is the only state shared across requests: every request may
// read it at analysis time and every request updates it once at record time.
//
// The store is initialized empty at process start, updated after every
// completed request, and never reset during the process lifetime. Durability
// is the caller's concern; see [Sink] for the append-only record stream.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Read-modify-write is serialized
// per (surface, category) key; adjustments to different keys do not contend
// beyond the brief map lookup.
type ConfidenceStore struct {
	mu      sync.RWMutex // guards the entries map, not the values
	entries map[confidenceKey]*confidenceEntry
}

type confidenceKey struct {
	Surface  Surface
	Category Category
}

type confidenceEntry struct {
	mu   sync.Mutex
	bias float64
}

// NewConfidenceStore creates an empty store.
func NewConfidenceStore() *ConfidenceStore {
	return &ConfidenceStore{
		entries: make(map[confidenceKey]*confidenceEntry),
	}
}

// entry returns the entry for a key, creating it at NeutralBias on first
// access.
func (s *ConfidenceStore) entry(surface Surface, category Category) *confidenceEntry {
	key := confidenceKey{Surface: surface, Category: category}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e
	}
	e = &confidenceEntry{bias: NeutralBias}
	s.entries[key] = e
	return e
}

// Bias returns the current bias for a (surface, category) pair. Pairs that
// have never received feedback report [NeutralBias].
func (s *ConfidenceStore) Bias(surface Surface, category Category) float64 {
	key := confidenceKey{Surface: surface, Category: category}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return NeutralBias
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bias
}

// Adjust moves the bias for a key by delta, clamped to [0, 1], and returns
// the new value. The read-modify-write is atomic per key.
func (s *ConfidenceStore) Adjust(surface Surface, category Category, delta float64) float64 {
	e := s.entry(surface, category)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.bias = clamp01(e.bias + delta)
	return e.bias
}

// Snapshot returns a copy of all biases keyed by "surface/category".
func (s *ConfidenceStore) Snapshot() map[string]float64 {
	s.mu.RLock()
	keys := make([]confidenceKey, 0, len(s.entries))
	entries := make([]*confidenceEntry, 0, len(s.entries))
	for k, e := range s.entries {
		keys = append(keys, k)
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make(map[string]float64, len(keys))
	for i, k := range keys {
		entries[i].mu.Lock()
		out[string(k.Surface)+"/"+string(k.Category)] = entries[i].bias
		entries[i].mu.Unlock()
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
