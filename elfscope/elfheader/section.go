package elfheader

import (
	"debug/elf"
	"fmt"

	"github.com/chains-project/elfscope/elfscope/elfimage"
)

type SectionHeader struct {
	Index     uint32
	NameOff   uint32
	Type      elf.SectionType
	Flags     elf.SectionFlag
	Addr      uint32
	Off       uint32
	Size      uint32
	Link      uint32
	Info      uint32
	Addralign uint32
	Entsize   uint32
}

// SectionAt reads entry index of the section header table. It is the only
// place that computes section header offsets.
func (h *Header) SectionAt(img *elfimage.Image, index uint32) (SectionHeader, error) {
	if index >= uint32(h.Shnum) {
		return SectionHeader{}, fmt.Errorf("section %d of %d: %w", index, h.Shnum, elfimage.ErrOutOfRange)
	}
	var raw elf.Section32
	off := uint64(h.Shoff) + uint64(index)*uint64(h.Shentsize)
	if err := img.ReadAt(off, &raw); err != nil {
		return SectionHeader{}, fmt.Errorf("reading section %d: %w", index, err)
	}
	return SectionHeader{
		Index:     index,
		NameOff:   raw.Name,
		Type:      elf.SectionType(raw.Type),
		Flags:     elf.SectionFlag(raw.Flags),
		Addr:      raw.Addr,
		Off:       raw.Off,
		Size:      raw.Size,
		Link:      raw.Link,
		Info:      raw.Info,
		Addralign: raw.Addralign,
		Entsize:   raw.Entsize,
	}, nil
}

// FindSection returns the first section of type typ.
func (h *Header) FindSection(img *elfimage.Image, typ elf.SectionType) (SectionHeader, error) {
	for i := uint32(0); i < uint32(h.Shnum); i++ {
		sec, err := h.SectionAt(img, i)
		if err != nil {
			return SectionHeader{}, err
		}
		if sec.Type == typ {
			log.Debugf("found %s in section %d", typ, i)
			return sec, nil
		}
	}
	return SectionHeader{}, &elfimage.MissingTableError{Table: TableName(typ)}
}

// TableName is the short name used when a table of type typ is missing.
func TableName(typ elf.SectionType) string {
	switch typ {
	case elf.SHT_SYMTAB:
		return "symtab"
	case elf.SHT_DYNSYM:
		return "dynsym"
	case elf.SHT_STRTAB:
		return "strtab"
	case elf.SHT_REL:
		return "rel"
	}
	return typ.String()
}

// Data returns the section's bytes. SHT_NOBITS sections occupy no file space
// and return nil.
func (s SectionHeader) Data(img *elfimage.Image) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	b, err := img.Slice(uint64(s.Off), uint64(s.Size))
	if err != nil {
		return nil, fmt.Errorf("section %d contents: %w", s.Index, err)
	}
	return b, nil
}
