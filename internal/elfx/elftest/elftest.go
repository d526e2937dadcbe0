// Package elftest builds small synthetic ELF64 images for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
)

// Section describes one section to lay out. Data is written to the file
// unless Type is SHT_NOBITS, in which case Size gives the section size.
type Section struct {
	Name  string
	Type  elf.SectionType
	Flags elf.SectionFlag
	Addr  uint64
	Data  []byte
	Size  uint64
}

// Rodata returns an allocated read-only data section at addr.
func Rodata(addr uint64, data []byte) Section {
	return Section{Name: ".rodata", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC, Addr: addr, Data: data}
}

// Text returns an executable section at addr.
func Text(addr uint64, data []byte) Section {
	return Section{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Addr: addr, Data: data}
}

const (
	ehdrSize = 0x40
	shdrSize = 0x40
)

// Build lays out an ELF64 little-endian shared object for the BPF machine:
// header, section contents, .shstrtab, then the section header table.
// Index 0 is the null section and the last index is .shstrtab.
func Build(sections ...Section) []byte {
	all := append([]Section{{}}, sections...)
	all = append(all, Section{Name: ".shstrtab", Type: elf.SHT_STRTAB})

	strtab := []byte{0}
	nameOff := make([]uint32, len(all))
	for i, s := range all {
		if i == 0 {
			continue
		}
		nameOff[i] = uint32(len(strtab))
		strtab = append(strtab, s.Name...)
		strtab = append(strtab, 0)
	}
	all[len(all)-1].Data = strtab

	buf := make([]byte, ehdrSize)
	offsets := make([]uint64, len(all))
	for i, s := range all {
		if i == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		offsets[i] = uint64(len(buf))
		buf = append(buf, s.Data...)
	}
	for len(buf)%8 != 0 {
		buf = append(buf, 0)
	}
	shoff := uint64(len(buf))

	le := binary.LittleEndian
	for i, s := range all {
		hdr := make([]byte, shdrSize)
		if i != 0 {
			size := uint64(len(s.Data))
			if s.Type == elf.SHT_NOBITS {
				size = s.Size
			}
			le.PutUint32(hdr[0x00:], nameOff[i])
			le.PutUint32(hdr[0x04:], uint32(s.Type))
			le.PutUint64(hdr[0x08:], uint64(s.Flags))
			le.PutUint64(hdr[0x10:], s.Addr)
			le.PutUint64(hdr[0x18:], offsets[i])
			le.PutUint64(hdr[0x20:], size)
			le.PutUint64(hdr[0x30:], 1)
		}
		buf = append(buf, hdr...)
	}

	copy(buf[0:], []byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	le.PutUint16(buf[0x10:], uint16(elf.ET_DYN))
	le.PutUint16(buf[0x12:], uint16(elf.EM_BPF))
	le.PutUint32(buf[0x14:], uint32(elf.EV_CURRENT))
	le.PutUint64(buf[0x28:], shoff)
	le.PutUint16(buf[0x34:], ehdrSize)
	le.PutUint16(buf[0x3a:], shdrSize)
	le.PutUint16(buf[0x3c:], uint16(len(all)))
	le.PutUint16(buf[0x3e:], uint16(len(all)-1))
	return buf
}
