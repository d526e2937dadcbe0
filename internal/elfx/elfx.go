// Package elfx parses the section table of little-endian ELF64 images and
// maps virtual addresses inside a section back to file offsets.
package elfx

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

var (
	ErrFormat     = errors.New("elfx: not a valid ELF64 image")
	ErrBounds     = errors.New("elfx: read past end of image")
	ErrOutOfRange = errors.New("elfx: address outside section")
	ErrNoSection  = errors.New("elfx: section not found")
)

// ELF64 file header field offsets.
const (
	offShoff     = 0x28
	offShentsize = 0x3a
	offShnum     = 0x3c
	offShstrndx  = 0x3e
	headerSize   = 0x40
)

// ELF64 section header field offsets and the smallest entry that holds them.
const (
	shName    = 0x00
	shType    = 0x04
	shFlags   = 0x08
	shAddr    = 0x10
	shOffset  = 0x18
	shSize    = 0x20
	shMinSize = 0x28
)

var magic = []byte{0x7f, 'E', 'L', 'F'}

// Section is one entry of the section header table.
type Section struct {
	Name   string
	Index  int
	Type   uint32
	Flags  uint64
	Addr   uint64 // virtual address
	Offset uint64 // file offset
	Size   uint64

	nameOff uint32
}

// Contains reports whether va lies in [Addr, Addr+Size).
func (s Section) Contains(va uint64) bool {
	return va >= s.Addr && va-s.Addr < s.Size
}

// FileOffset translates a virtual address inside the section to a file offset.
func (s Section) FileOffset(va uint64) (uint64, error) {
	if !s.Contains(va) {
		return 0, fmt.Errorf("%w: VA 0x%x not in %s [0x%x, 0x%x)",
			ErrOutOfRange, va, s.Name, s.Addr, s.Addr+s.Size)
	}
	return s.Offset + (va - s.Addr), nil
}

// Image is a loaded ELF64 file: the raw bytes plus its parsed section table.
// It is never mutated after Parse returns.
type Image struct {
	data     []byte
	sections []Section
	byName   map[string]Section
}

// Open reads the file at path and parses it.
func Open(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("elfx: read: %w", err)
	}
	return Parse(data)
}

// Parse validates the ELF magic and decodes the section header table.
// Duplicate section names resolve to the last entry in header order.
func Parse(data []byte) (*Image, error) {
	if len(data) < len(magic) || !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: header truncated (%d bytes)", ErrBounds, len(data))
	}

	le := binary.LittleEndian
	shoff := le.Uint64(data[offShoff:])
	shentsize := uint64(le.Uint16(data[offShentsize:]))
	shnum := int(le.Uint16(data[offShnum:]))
	shstrndx := int(le.Uint16(data[offShstrndx:]))

	img := &Image{
		data:   data,
		byName: make(map[string]Section, shnum),
	}
	if shnum == 0 {
		return img, nil
	}
	if shentsize < shMinSize {
		return nil, fmt.Errorf("%w: section entry size 0x%x", ErrFormat, shentsize)
	}
	if shstrndx >= shnum {
		return nil, fmt.Errorf("%w: string table index %d >= section count %d", ErrFormat, shstrndx, shnum)
	}

	// shnum and shentsize are 16-bit, so the product cannot overflow.
	if _, err := span(data, shoff, uint64(shnum)*shentsize); err != nil {
		return nil, fmt.Errorf("section header table: %w", err)
	}

	img.sections = make([]Section, shnum)
	for i := range img.sections {
		hdr, err := span(data, shoff+uint64(i)*shentsize, shMinSize)
		if err != nil {
			return nil, fmt.Errorf("section header %d: %w", i, err)
		}
		img.sections[i] = Section{
			Index:   i,
			nameOff: le.Uint32(hdr[shName:]),
			Type:    le.Uint32(hdr[shType:]),
			Flags:   le.Uint64(hdr[shFlags:]),
			Addr:    le.Uint64(hdr[shAddr:]),
			Offset:  le.Uint64(hdr[shOffset:]),
			Size:    le.Uint64(hdr[shSize:]),
		}
	}

	strtab := img.sections[shstrndx].Offset
	for i := range img.sections {
		s := &img.sections[i]
		name, err := readName(data, strtab, s.nameOff)
		if err != nil {
			return nil, fmt.Errorf("section %d name: %w", i, err)
		}
		s.Name = name
		img.byName[name] = *s
	}
	return img, nil
}

func readName(data []byte, strtab uint64, off uint32) (string, error) {
	start := strtab + uint64(off)
	if start < strtab || start >= uint64(len(data)) {
		return "", fmt.Errorf("%w: name at 0x%x", ErrBounds, start)
	}
	end := bytes.IndexByte(data[start:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated name at 0x%x", ErrBounds, start)
	}
	return decodeASCII(data[start : start+uint64(end)]), nil
}

// decodeASCII maps every non-ASCII byte to U+FFFD.
func decodeASCII(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		if c < utf8.RuneSelf {
			sb.WriteByte(c)
		} else {
			sb.WriteRune(utf8.RuneError)
		}
	}
	return sb.String()
}

// span returns data[off:off+n] or ErrBounds.
func span(data []byte, off, n uint64) ([]byte, error) {
	size := uint64(len(data))
	if off > size || n > size-off {
		return nil, fmt.Errorf("%w: [0x%x, +0x%x) beyond size 0x%x", ErrBounds, off, n, size)
	}
	return data[off : off+n], nil
}

// Len returns the size of the image in bytes.
func (img *Image) Len() int { return len(img.data) }

// Sections returns the section table in header order.
func (img *Image) Sections() []Section {
	out := make([]Section, len(img.sections))
	copy(out, img.sections)
	return out
}

// Section looks up a section by exact name.
func (img *Image) Section(name string) (Section, error) {
	s, ok := img.byName[name]
	if !ok {
		return Section{}, fmt.Errorf("%w: %s", ErrNoSection, name)
	}
	return s, nil
}

// ReadBytes reads n bytes starting at va. The whole range must lie inside
// the section and inside the image.
func (img *Image) ReadBytes(sec Section, va uint64, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("elfx: negative length %d", n)
	}
	off, err := sec.FileOffset(va)
	if err != nil {
		return nil, err
	}
	if uint64(n) > sec.Size-(va-sec.Addr) {
		return nil, fmt.Errorf("%w: %d bytes at VA 0x%x cross the end of %s",
			ErrOutOfRange, n, va, sec.Name)
	}
	b, err := span(img.data, off, uint64(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Text is a decoded NUL-terminated string. When Raw is not valid UTF-8,
// Value holds its hex encoding and Hex is set.
type Text struct {
	Value string
	Raw   []byte
	Hex   bool
}

// ReadCString scans at most max bytes from va up to the first NUL. The scan
// is clamped to the end of the section and the end of the image.
func (img *Image) ReadCString(sec Section, va uint64, max int) (Text, error) {
	off, err := sec.FileOffset(va)
	if err != nil {
		return Text{}, err
	}
	if off >= uint64(len(img.data)) {
		return Text{}, fmt.Errorf("%w: offset 0x%x for VA 0x%x", ErrBounds, off, va)
	}
	limit := uint64(len(img.data)) - off
	if rest := sec.Size - (va - sec.Addr); rest < limit {
		limit = rest
	}
	if max >= 0 && uint64(max) < limit {
		limit = uint64(max)
	}
	b := img.data[off : off+limit]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	raw := make([]byte, len(b))
	copy(raw, b)
	if utf8.Valid(raw) {
		return Text{Value: string(raw), Raw: raw}, nil
	}
	return Text{Value: hex.EncodeToString(raw), Raw: raw, Hex: true}, nil
}

// Fingerprint returns the xxh3 hash of the whole image as 16 hex digits.
func (img *Image) Fingerprint() string {
	return fmt.Sprintf("%016x", xxh3.Hash(img.data))
}

// TypeName returns the symbolic name of a section type, e.g. "SHT_PROGBITS".
func TypeName(t uint32) string {
	return elf.SectionType(t).String()
}

// FlagString renders section flags, e.g. "SHF_WRITE+SHF_ALLOC".
func FlagString(f uint64) string {
	if f == 0 {
		return "0"
	}
	return elf.SectionFlag(f).String()
}
