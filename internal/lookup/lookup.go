// Package lookup builds the published name lookup index: one approximate
// membership filter per district, keyed by "LAST,FIRST,D{n}".
//
// Bit positions use double hashing over a SHA-256 digest of the key:
//
//	h1 = digest[0:8] big-endian
//	h2 = digest[8:16] big-endian | 1
//	pos_i = (h1 + i*h2) mod m, i = 0..k-1
//
// Bits are packed LSB-first within each byte and base64 encoded. The filter
// stores no names or reversible hashes; it has false positives but never
// false negatives.
package lookup

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// NormalizeName reduces "Last, First Middle" to "LAST,FIRST". It returns ""
// when nothing usable remains.
func NormalizeName(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	var last, first string
	if before, after, ok := strings.Cut(raw, ","); ok {
		last = strings.TrimSpace(before)
		if fields := strings.Fields(after); len(fields) > 0 {
			first = fields[0]
		}
	} else {
		last = raw
	}
	if last == "" && first == "" {
		return ""
	}
	return last + "," + first
}

// Key returns the district-scoped key for a raw name.
func Key(name string, district int) (string, bool) {
	norm := NormalizeName(name)
	if norm == "" {
		return "", false
	}
	return norm + ",D" + strconv.Itoa(district), true
}

// Filter is a fixed-size bloom filter.
type Filter struct {
	m    uint64
	k    int
	bits []byte
}

// New allocates an empty filter of m bits and k hash functions.
func New(m, k int) (*Filter, error) {
	if m <= 0 || m%8 != 0 {
		return nil, fmt.Errorf("filter size %d must be a positive multiple of 8", m)
	}
	if k <= 0 {
		return nil, fmt.Errorf("hash count %d must be positive", k)
	}
	return &Filter{m: uint64(m), k: k, bits: make([]byte, m/8)}, nil
}

// Positions returns the k bit positions for key.
func (f *Filter) Positions(key string) []uint64 {
	digest := sha256.Sum256([]byte(key))
	h1 := binary.BigEndian.Uint64(digest[0:8]) % f.m
	h2 := (binary.BigEndian.Uint64(digest[8:16]) | 1) % f.m

	positions := make([]uint64, f.k)
	for i := range positions {
		// reduced operands keep the sum below 2^64 for any realistic m
		positions[i] = (h1 + uint64(i)*h2) % f.m
	}
	return positions
}

// Add inserts key.
func (f *Filter) Add(key string) {
	for _, pos := range f.Positions(key) {
		f.bits[pos>>3] |= 1 << (pos & 7)
	}
}

// Test reports whether key may have been inserted.
func (f *Filter) Test(key string) bool {
	for _, pos := range f.Positions(key) {
		if f.bits[pos>>3]&(1<<(pos&7)) == 0 {
			return false
		}
	}
	return true
}

// Doc serializes the filter.
func (f *Filter) Doc() models.FilterDoc {
	return models.FilterDoc{
		M:    int(f.m),
		K:    f.k,
		Bits: base64.StdEncoding.EncodeToString(f.bits),
	}
}

// Build creates the lookup index from raw per-district name lists.
func Build(names map[int][]string, m, k int) (*models.LookupIndex, error) {
	index := &models.LookupIndex{
		Version:   models.LookupIndexVersion,
		M:         m,
		K:         k,
		Districts: make(map[string]models.FilterDoc, len(names)),
	}

	districts := make([]int, 0, len(names))
	for d := range names {
		districts = append(districts, d)
	}
	sort.Ints(districts)

	for _, d := range districts {
		f, err := New(m, k)
		if err != nil {
			return nil, err
		}
		for _, name := range names[d] {
			key, ok := Key(name, d)
			if !ok {
				continue
			}
			f.Add(key)
			index.Count++
		}
		index.Districts[strconv.Itoa(d)] = f.Doc()
	}
	return index, nil
}

// ErrUnsupportedVersion is returned when decoding an index with another key layout.
var ErrUnsupportedVersion = errors.New("unsupported lookup index version")

// Index answers membership queries against a decoded lookup index.
type Index struct {
	filters map[int]*Filter
	count   int
}

// Decode parses a published lookup index.
func Decode(doc *models.LookupIndex) (*Index, error) {
	if doc == nil {
		return nil, errors.New("lookup index is nil")
	}
	if doc.Version != models.LookupIndexVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	idx := &Index{filters: make(map[int]*Filter, len(doc.Districts)), count: doc.Count}
	for key, fd := range doc.Districts {
		d, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid district %q: %w", key, err)
		}
		bits, err := base64.StdEncoding.DecodeString(fd.Bits)
		if err != nil {
			return nil, fmt.Errorf("district %d: failed to decode bits: %w", d, err)
		}
		f, err := New(fd.M, fd.K)
		if err != nil {
			return nil, fmt.Errorf("district %d: %w", d, err)
		}
		if len(bits) != len(f.bits) {
			return nil, fmt.Errorf("district %d: got %d bytes, want %d", d, len(bits), len(f.bits))
		}
		f.bits = bits
		idx.filters[d] = f
	}
	return idx, nil
}

// Contains reports whether name may be present in district.
func (idx *Index) Contains(name string, district int) bool {
	f, ok := idx.filters[district]
	if !ok {
		return false
	}
	key, ok := Key(name, district)
	if !ok {
		return false
	}
	return f.Test(key)
}

// Count is the number of keys indexed across all districts.
func (idx *Index) Count() int {
	return idx.count
}
