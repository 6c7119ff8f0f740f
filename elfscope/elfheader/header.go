// Package elfheader provides typed views over the fixed-layout structures of
// an ELF32 file: the file header, section and program headers, symbols and
// relocations. Views are decoded on demand from an elfimage.Image and never
// cached.
package elfheader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/chains-project/elfscope/elfscope/elfimage"
)

var log = logrus.WithField("component", "elfheader")

var (
	headerSize        = uint64(binary.Size(elf.Header32{}))
	sectionHeaderSize = uint64(binary.Size(elf.Section32{}))
	programHeaderSize = uint64(binary.Size(elf.Prog32{}))
)

type Encoding int

const (
	EncodingInvalid Encoding = iota
	EncodingLittle
	EncodingBig
)

func (e Encoding) String() string {
	switch e {
	case EncodingLittle:
		return "little endian"
	case EncodingBig:
		return "big endian"
	default:
		return "invalid"
	}
}

func encodingOf(d elf.Data) Encoding {
	switch d {
	case elf.ELFDATA2LSB:
		return EncodingLittle
	case elf.ELFDATA2MSB:
		return EncodingBig
	default:
		return EncodingInvalid
	}
}

type Header struct {
	Ident     [elf.EI_NIDENT]byte
	Class     elf.Class
	Encoding  Encoding
	Type      elf.Type
	Machine   elf.Machine
	Entry     uint32
	Phoff     uint32
	Shoff     uint32
	Flags     uint32
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// Parse decodes the ELF header at offset 0 and checks that the section and
// program header tables it declares lie inside the image.
func Parse(img *elfimage.Image) (*Header, error) {
	var raw elf.Header32
	if err := img.ReadAt(0, &raw); err != nil {
		return nil, fmt.Errorf("reading ELF header: %w", err)
	}

	h := &Header{
		Ident:     raw.Ident,
		Class:     elf.Class(raw.Ident[elf.EI_CLASS]),
		Encoding:  encodingOf(elf.Data(raw.Ident[elf.EI_DATA])),
		Type:      elf.Type(raw.Type),
		Machine:   elf.Machine(raw.Machine),
		Entry:     raw.Entry,
		Phoff:     raw.Phoff,
		Shoff:     raw.Shoff,
		Flags:     raw.Flags,
		Phentsize: raw.Phentsize,
		Phnum:     raw.Phnum,
		Shentsize: raw.Shentsize,
		Shnum:     raw.Shnum,
		Shstrndx:  raw.Shstrndx,
	}

	if h.Class == elf.ELFCLASS64 {
		return nil, fmt.Errorf("%s objects are not supported: %w", h.Class, elfimage.ErrInvalidFormat)
	}
	if h.Shnum > 0 && uint64(h.Shentsize) < sectionHeaderSize {
		return nil, fmt.Errorf("section header entry size %d is smaller than %d: %w", h.Shentsize, sectionHeaderSize, elfimage.ErrInvalidFormat)
	}
	if h.Phnum > 0 && uint64(h.Phentsize) < programHeaderSize {
		return nil, fmt.Errorf("program header entry size %d is smaller than %d: %w", h.Phentsize, programHeaderSize, elfimage.ErrInvalidFormat)
	}
	if _, err := img.Slice(uint64(h.Shoff), uint64(h.Shnum)*uint64(h.Shentsize)); err != nil {
		return nil, fmt.Errorf("section header table: %w", err)
	}
	if _, err := img.Slice(uint64(h.Phoff), uint64(h.Phnum)*uint64(h.Phentsize)); err != nil {
		return nil, fmt.Errorf("program header table: %w", err)
	}
	if h.Encoding == EncodingInvalid {
		log.Warnf("unknown data encoding %d", raw.Ident[elf.EI_DATA])
	}
	return h, nil
}

type ProgramHeader struct {
	Index  uint16
	Type   elf.ProgType
	Flags  elf.ProgFlag
	Off    uint32
	Vaddr  uint32
	Paddr  uint32
	Filesz uint32
	Memsz  uint32
	Align  uint32
}

func (h *Header) ProgramAt(img *elfimage.Image, index uint16) (ProgramHeader, error) {
	if index >= h.Phnum {
		return ProgramHeader{}, fmt.Errorf("program header %d of %d: %w", index, h.Phnum, elfimage.ErrOutOfRange)
	}
	var raw elf.Prog32
	off := uint64(h.Phoff) + uint64(index)*uint64(h.Phentsize)
	if err := img.ReadAt(off, &raw); err != nil {
		return ProgramHeader{}, fmt.Errorf("reading program header %d: %w", index, err)
	}
	return ProgramHeader{
		Index:  index,
		Type:   elf.ProgType(raw.Type),
		Flags:  elf.ProgFlag(raw.Flags),
		Off:    raw.Off,
		Vaddr:  raw.Vaddr,
		Paddr:  raw.Paddr,
		Filesz: raw.Filesz,
		Memsz:  raw.Memsz,
		Align:  raw.Align,
	}, nil
}
