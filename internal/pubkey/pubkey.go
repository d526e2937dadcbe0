// Package pubkey extracts 32-byte public keys embedded in program data.
package pubkey

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mr-tron/base58"

	"sbfre/internal/elfx"
)

// Size is the length of an ed25519 public key.
const Size = 32

var ErrKeyLength = errors.New("pubkey: decoded key is not 32 bytes")

// Key is a raw public key.
type Key [Size]byte

// String returns the base58 encoding.
func (k Key) String() string {
	return base58.Encode(k[:])
}

// Parse decodes a base58 key and checks that it is exactly 32 bytes.
func Parse(s string) (Key, error) {
	var k Key
	b, err := base58.Decode(s)
	if err != nil {
		return k, fmt.Errorf("pubkey: decode %q: %w", s, err)
	}
	if len(b) != Size {
		return k, fmt.Errorf("%w: %q decodes to %d bytes", ErrKeyLength, s, len(b))
	}
	copy(k[:], b)
	return k, nil
}

// Read reads one key at va inside sec.
func Read(img *elfx.Image, sec elfx.Section, va uint64) (Key, error) {
	var k Key
	b, err := img.ReadBytes(sec, va, Size)
	if err != nil {
		return k, err
	}
	copy(k[:], b)
	return k, nil
}

// Result is the outcome of reading one candidate address.
type Result struct {
	Addr uint64
	Key  Key
	Err  error
}

// OK reports whether the key was read.
func (r Result) OK() bool { return r.Err == nil }

// Extract reads a key at every address. A failing address is recorded in
// its Result and does not stop the batch. Results keep the input order.
func Extract(img *elfx.Image, sec elfx.Section, addrs []uint64) []Result {
	out := make([]Result, 0, len(addrs))
	for _, a := range addrs {
		k, err := Read(img, sec, a)
		out = append(out, Result{Addr: a, Key: k, Err: err})
	}
	return out
}

// Unique keeps failed results and the first successful result for each key.
func Unique(results []Result) []Result {
	seen := make(map[Key]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.OK() {
			if seen[r.Key] {
				continue
			}
			seen[r.Key] = true
		}
		out = append(out, r)
	}
	return out
}

// Category is a coarse grouping of a labeled program.
type Category string

const (
	CategoryDEX     Category = "dex"
	CategoryInfra   Category = "infra"
	CategoryUnknown Category = "unknown"
	CategoryNone    Category = ""
)

var (
	dexWords   = []string{"dex", "swap", "amm", "whirl", "dlmm", "cpmm", "clmm", "meteora", "raydium", "orca", "pump", "saber", "flux"}
	infraWords = []string{"token", "system", "sol", "usdc", "mint"}
)

// Classify groups a label by keyword. DEX keywords take precedence.
func Classify(label string) Category {
	l := strings.ToLower(label)
	switch {
	case containsAny(l, dexWords):
		return CategoryDEX
	case containsAny(l, infraWords):
		return CategoryInfra
	case strings.Contains(l, "unknown"):
		return CategoryUnknown
	}
	return CategoryNone
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Labels maps base58 keys to human-readable program names.
type Labels map[string]string

// Lookup returns the label for k.
func (l Labels) Lookup(k Key) (string, bool) {
	name, ok := l[k.String()]
	return name, ok
}

// Validate checks that every key in the table decodes to 32 bytes.
func (l Labels) Validate() error {
	var errs []error
	for _, s := range l.Keys() {
		if _, err := Parse(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counts tallies the table by category.
func (l Labels) Counts() map[Category]int {
	out := make(map[Category]int)
	for _, name := range l {
		out[Classify(name)]++
	}
	return out
}

// Keys returns the table keys sorted by label, then key.
func (l Labels) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if l[keys[i]] != l[keys[j]] {
			return l[keys[i]] < l[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
