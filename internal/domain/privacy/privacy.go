// Package privacy gates the event stream before aggregation or
// persistence sees it.
//
// Two guarantees: events from password-type input fields never reach a
// per-key, per-digraph or per-word statistic; and user-ignored words are
// matched only by one-way hash, so their plaintext never appears in a
// log line or a persisted row.
package privacy

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/typepulse/typepulse/internal/domain/model"
)

// pepper is an application-wide hashing key. Combined with the per-user
// salt it keeps word hashes stable across devices sharing an encryption
// key while staying unlinkable to a dictionary without both values.
var pepper = []byte{
	0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f, 0x1a, 0x2b,
	0x3c, 0x4d, 0x5e, 0x6f, 0x1a, 0x2b, 0x3c, 0x4d,
	0x5e, 0x6f, 0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f,
	0x1a, 0x2b, 0x3c, 0x4d, 0x5e, 0x6f, 0x1a, 0x2b,
}

const saltDerivationLabel = "ignored_words_user_salt_derivation"

// KeySize is the required encryption key length in bytes.
const KeySize = 32

// Hasher produces stable one-way hashes of words. Safe for concurrent
// use: the salt is immutable after construction.
type Hasher struct {
	userSalt []byte
}

// NewHasher derives the per-user salt from the 32-byte encryption key.
// Devices sharing a key derive the same salt and therefore the same
// hashes, which is what lets the ignore-list sync.
func NewHasher(encryptionKey []byte) (*Hasher, error) {
	if len(encryptionKey) != KeySize {
		return nil, fmt.Errorf("%w: encryption key must be %d bytes, got %d", ErrBadKey, KeySize, len(encryptionKey))
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, err
	}
	h.Write(encryptionKey)
	h.Write([]byte(saltDerivationLabel))
	return &Hasher{userSalt: h.Sum(nil)}, nil
}

// HashWord returns the 64-hex-character BLAKE2b-256 hash of a word.
// Hashing is case-insensitive; the plaintext is not retained.
func (h *Hasher) HashWord(word string) string {
	mac, err := blake2b.New256(pepper)
	if err != nil {
		// blake2b only rejects oversized keys; pepper is fixed at 32 bytes.
		panic(err)
	}
	mac.Write(h.userSalt)
	mac.Write([]byte(strings.ToLower(word)))
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// IgnoredWords is the set of one-way hashes of words the user excluded
// from word statistics. Guarded: the HTTP layer adds entries while the
// aggregation goroutine consults them.
type IgnoredWords struct {
	mu     sync.RWMutex
	hashes map[string]struct{}
}

// NewIgnoredWords builds the set from previously persisted hashes.
func NewIgnoredWords(hashes []string) *IgnoredWords {
	set := make(map[string]struct{}, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}
	return &IgnoredWords{hashes: set}
}

// AddHash records a hash. Returns false if it was already present.
func (w *IgnoredWords) AddHash(hash string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.hashes[hash]; ok {
		return false
	}
	w.hashes[hash] = struct{}{}
	return true
}

// ContainsHash reports whether a hash is in the set.
func (w *IgnoredWords) ContainsHash(hash string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.hashes[hash]
	return ok
}

// Len returns the number of ignored hashes.
func (w *IgnoredWords) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.hashes)
}

// Filter applies both privacy gates ahead of the aggregators.
type Filter struct {
	hasher  *Hasher
	ignored *IgnoredWords
}

// NewFilter wires the hasher and ignore set together.
func NewFilter(hasher *Hasher, ignored *IgnoredWords) *Filter {
	return &Filter{hasher: hasher, ignored: ignored}
}

// AllowEvent reports whether an event may be attributed to statistics.
// Password-context events are consumed but never attributed.
func (f *Filter) AllowEvent(e model.RawKeyEvent) bool {
	return !e.IsPasswordContext
}

// AllowWord reports whether a completed word may be aggregated and
// persisted. The plaintext is hashed and discarded; only the hash is
// compared.
func (f *Filter) AllowWord(word string) bool {
	return !f.ignored.ContainsHash(f.hasher.HashWord(word))
}

// Ignore adds a word to the ignore set and returns its hash for
// persistence. The plaintext is not stored.
func (f *Filter) Ignore(word string) (hash string, added bool) {
	hash = f.hasher.HashWord(word)
	return hash, f.ignored.AddHash(hash)
}
