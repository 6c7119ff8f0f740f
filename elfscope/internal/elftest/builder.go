// Package elftest lays out small ELF32 images in memory for tests.
package elftest

import (
	"debug/elf"
	"encoding/binary"
)

var (
	headerSize  = uint32(binary.Size(elf.Header32{}))
	sectionSize = uint32(binary.Size(elf.Section32{}))
	progSize    = uint32(binary.Size(elf.Prog32{}))
)

type Section struct {
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint32
	Link    uint32
	Info    uint32
	Entsize uint32
	Data    []byte
	// Size is used for SHT_NOBITS sections, which have no Data.
	Size uint32
}

// Builder collects sections and program headers. Index 0 is always the null
// section and the section name table is appended last.
type Builder struct {
	Type     elf.Type
	Machine  elf.Machine
	Data     elf.Data
	Entry    uint32
	Sections []Section
	Progs    []elf.Prog32
}

func New(machine elf.Machine) *Builder {
	return &Builder{Type: elf.ET_REL, Machine: machine, Data: nativeData()}
}

func nativeData() elf.Data {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return elf.ELFDATA2LSB
	}
	return elf.ELFDATA2MSB
}

// Add appends s and returns its section index.
func (b *Builder) Add(s Section) uint32 {
	b.Sections = append(b.Sections, s)
	return uint32(len(b.Sections))
}

// NextIndex is the index the next added section will get.
func (b *Builder) NextIndex() uint32 {
	return uint32(len(b.Sections)) + 1
}

func (b *Builder) Build() []byte {
	names := NewStrtab()
	shstrndx := uint32(len(b.Sections)) + 1

	out := make([]byte, headerSize)
	phoff := uint32(0)
	if len(b.Progs) > 0 {
		phoff = uint32(len(out))
		for _, p := range b.Progs {
			out, _ = binary.Append(out, binary.NativeEndian, p)
		}
	}

	headers := []elf.Section32{{}}
	for _, s := range b.Sections {
		out = align(out)
		hdr := elf.Section32{
			Name:      names.Put(s.Name),
			Type:      uint32(s.Type),
			Flags:     uint32(s.Flags),
			Addr:      s.Addr,
			Off:       uint32(len(out)),
			Size:      uint32(len(s.Data)),
			Link:      s.Link,
			Info:      s.Info,
			Addralign: 4,
			Entsize:   s.Entsize,
		}
		if s.Type == elf.SHT_NOBITS {
			hdr.Size = s.Size
		} else {
			out = append(out, s.Data...)
		}
		headers = append(headers, hdr)
	}

	shstrName := names.Put(".shstrtab")
	shstrtab := elf.Section32{
		Name:      shstrName,
		Type:      uint32(elf.SHT_STRTAB),
		Off:       uint32(len(out)),
		Size:      uint32(len(names.Bytes())),
		Addralign: 1,
	}
	out = append(out, names.Bytes()...)
	headers = append(headers, shstrtab)

	out = align(out)
	shoff := uint32(len(out))
	for _, h := range headers {
		out, _ = binary.Append(out, binary.NativeEndian, h)
	}

	hdr := elf.Header32{
		Type:      uint16(b.Type),
		Machine:   uint16(b.Machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     b.Entry,
		Phoff:     phoff,
		Shoff:     shoff,
		Ehsize:    uint16(headerSize),
		Phentsize: uint16(progSize),
		Phnum:     uint16(len(b.Progs)),
		Shentsize: uint16(sectionSize),
		Shnum:     uint16(len(headers)),
		Shstrndx:  uint16(shstrndx),
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(b.Data)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hb, _ := binary.Append(nil, binary.NativeEndian, hdr)
	copy(out, hb)
	return out
}

func align(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

// PatchSection rewrites entry index of the section header table in data.
func PatchSection(data []byte, index int, fn func(*elf.Section32)) {
	var hdr elf.Header32
	binary.Decode(data, binary.NativeEndian, &hdr)
	off := int(hdr.Shoff) + index*int(hdr.Shentsize)
	var s elf.Section32
	binary.Decode(data[off:], binary.NativeEndian, &s)
	fn(&s)
	b, _ := binary.Append(nil, binary.NativeEndian, s)
	copy(data[off:], b)
}

// PatchHeader rewrites the ELF header in data.
func PatchHeader(data []byte, fn func(*elf.Header32)) {
	var hdr elf.Header32
	binary.Decode(data, binary.NativeEndian, &hdr)
	fn(&hdr)
	b, _ := binary.Append(nil, binary.NativeEndian, hdr)
	copy(data, b)
}
