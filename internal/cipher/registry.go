package cipher

import "sync"

// Registry is a process-wide catalog mapping family names to algorithm
// entries. Register copies the map and swaps in the copy under the lock;
// lookups hold the lock only long enough to take the current map and then
// search it unlocked, since registration is expected to happen once at
// process startup (built-ins) plus, rarely, once more per plugin family.
type Registry struct {
	mu    sync.Mutex
	algos map[string]Algorithm
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{algos: make(map[string]Algorithm)}
}

// Register adds or replaces the entry for alg.Name.
func (r *Registry) Register(alg Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := make(map[string]Algorithm, len(r.algos)+1)
	for k, v := range r.algos {
		next[k] = v
	}
	next[alg.Name] = alg
	r.algos = next
}

// Lookup finds an algorithm whose descriptor satisfies d.
func (r *Registry) Lookup(d Descriptor) (Algorithm, bool) {
	r.mu.Lock()
	algos := r.algos
	r.mu.Unlock()
	for _, a := range algos {
		if a.Descriptor.Satisfies(d) {
			return a, true
		}
	}
	return Algorithm{}, false
}

// LookupByName finds an algorithm by family name, optionally also requiring
// it accept a given raw key size (pass 0 to skip that check).
func (r *Registry) LookupByName(name string, keyBytes int) (Algorithm, bool) {
	r.mu.Lock()
	algos := r.algos
	r.mu.Unlock()
	a, ok := algos[name]
	if !ok {
		return Algorithm{}, false
	}
	if keyBytes != 0 && !a.acceptsKeySize(keyBytes) {
		return Algorithm{}, false
	}
	return a, true
}

// List returns all registered algorithms, skipping hidden ones unless
// includeHidden is set.
func (r *Registry) List(includeHidden bool) []Algorithm {
	r.mu.Lock()
	algos := r.algos
	r.mu.Unlock()
	out := make([]Algorithm, 0, len(algos))
	for _, a := range algos {
		if a.Hidden && !includeHidden {
			continue
		}
		out = append(out, a)
	}
	return out
}

// DefaultRegistry is populated at init with the built-in families.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(Algorithm{
		Name:        "aes-ctr",
		Description: "AES-256 in CTR mode with a detached mac64 block MAC",
		Descriptor:  Descriptor{Family: "aes-ctr", Current: 1, Age: 0},
		KeySizes:    []int{aesKeySize},
		BlockSize:   aesCTRCipher{}.CipherBlockSize(),
		StreamCap:   true,
		New:         newAESCTRCipher,
	})
	DefaultRegistry.Register(Algorithm{
		Name:        "chacha20",
		Description: "ChaCha20 stream cipher with a detached mac64 block MAC",
		Descriptor:  Descriptor{Family: "chacha20", Current: 1, Age: 0},
		KeySizes:    []int{chacha20KeySize},
		BlockSize:   chacha20Cipher{}.CipherBlockSize(),
		StreamCap:   true,
		New:         newChaCha20Cipher,
	})
}

// Register adds alg to DefaultRegistry.
func Register(alg Algorithm) { DefaultRegistry.Register(alg) }

// Lookup finds an algorithm in DefaultRegistry.
func Lookup(d Descriptor) (Algorithm, bool) { return DefaultRegistry.Lookup(d) }

// LookupByName finds an algorithm in DefaultRegistry by name.
func LookupByName(name string, keyBytes int) (Algorithm, bool) {
	return DefaultRegistry.LookupByName(name, keyBytes)
}

// List enumerates DefaultRegistry.
func List(includeHidden bool) []Algorithm { return DefaultRegistry.List(includeHidden) }
