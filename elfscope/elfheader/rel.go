package elfheader

import (
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/chains-project/elfscope/elfscope/elfimage"
)

var relSize = uint32(binary.Size(elf.Rel32{}))

type Rel struct {
	Off  uint32
	Info uint32
}

// Type is the low byte of the info word.
func (r Rel) Type() uint8 {
	return uint8(elf.R_TYPE32(r.Info))
}

// SymbolIndex is the info word without its low byte.
func (r Rel) SymbolIndex() uint32 {
	return elf.R_SYM32(r.Info)
}

// RelTable is a SHT_REL section stepped by its declared entry size.
type RelTable struct {
	Section SectionHeader
	Count   uint32

	img *elfimage.Image
}

func (h *Header) RelTable(img *elfimage.Image, sec SectionHeader) (*RelTable, error) {
	if sec.Type != elf.SHT_REL {
		return nil, fmt.Errorf("section %d has type %s, not %s: %w", sec.Index, sec.Type, elf.SHT_REL, elfimage.ErrInvalidFormat)
	}
	if sec.Entsize < relSize {
		return nil, fmt.Errorf("section %d declares relocation entry size %d: %w", sec.Index, sec.Entsize, elfimage.ErrInvalidFormat)
	}
	if sec.Entsize != relSize {
		log.Warnf("section %d declares relocation entry size %d, expected %d", sec.Index, sec.Entsize, relSize)
	}
	if _, err := img.Slice(uint64(sec.Off), uint64(sec.Size)); err != nil {
		return nil, fmt.Errorf("relocation table in section %d: %w", sec.Index, err)
	}
	return &RelTable{Section: sec, Count: sec.Size / sec.Entsize, img: img}, nil
}

func (t *RelTable) At(i uint32) (Rel, error) {
	if i >= t.Count {
		return Rel{}, fmt.Errorf("relocation %d of %d in section %d: %w", i, t.Count, t.Section.Index, elfimage.ErrOutOfRange)
	}
	var raw elf.Rel32
	off := uint64(t.Section.Off) + uint64(i)*uint64(t.Section.Entsize)
	if err := t.img.ReadAt(off, &raw); err != nil {
		return Rel{}, fmt.Errorf("reading relocation %d: %w", i, err)
	}
	return Rel{Off: raw.Off, Info: raw.Info}, nil
}
