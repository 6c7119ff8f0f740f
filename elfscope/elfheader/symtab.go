package elfheader

import (
	"debug/elf"
	"fmt"

	"github.com/chains-project/elfscope/elfscope/elfimage"
)

type Symbol struct {
	NameOff uint32
	Value   uint32
	Size    uint32
	Info    uint8
	Other   uint8
	Shndx   elf.SectionIndex
}

func (s Symbol) Bind() elf.SymBind {
	return elf.ST_BIND(s.Info)
}

func (s Symbol) Type() elf.SymType {
	return elf.ST_TYPE(s.Info)
}

// SymbolTable is a SHT_SYMTAB or SHT_DYNSYM section together with the string
// table its link field names.
type SymbolTable struct {
	Section SectionHeader
	Strings StringTable
	Stride  uint32
	Count   uint32

	img *elfimage.Image
}

func (h *Header) SymbolTable(img *elfimage.Image, sec SectionHeader) (*SymbolTable, error) {
	if sec.Type != elf.SHT_SYMTAB && sec.Type != elf.SHT_DYNSYM {
		return nil, fmt.Errorf("section %d has type %s, not a symbol table: %w", sec.Index, sec.Type, elfimage.ErrInvalidFormat)
	}
	if _, err := img.Slice(uint64(sec.Off), uint64(sec.Size)); err != nil {
		return nil, fmt.Errorf("symbol table in section %d: %w", sec.Index, err)
	}
	strs, err := h.StringTable(img, sec.Link)
	if err != nil {
		return nil, fmt.Errorf("names for symbol table %d: %w", sec.Index, err)
	}
	stride := symbolStride(sec)
	return &SymbolTable{
		Section: sec,
		Strings: strs,
		Stride:  stride,
		Count:   sec.Size / stride,
		img:     img,
	}, nil
}

// symbolStride uses the declared entry size unless it cannot hold a symbol.
// Any value other than elf.Sym32Size is suspicious and logged.
func symbolStride(sec SectionHeader) uint32 {
	switch {
	case sec.Entsize == elf.Sym32Size:
		return sec.Entsize
	case sec.Entsize < elf.Sym32Size:
		log.Warnf("section %d declares symbol entry size %d, using %d", sec.Index, sec.Entsize, elf.Sym32Size)
		return elf.Sym32Size
	default:
		log.Warnf("section %d declares symbol entry size %d, expected %d", sec.Index, sec.Entsize, elf.Sym32Size)
		return sec.Entsize
	}
}

func (t *SymbolTable) At(i uint32) (Symbol, error) {
	if i >= t.Count {
		return Symbol{}, fmt.Errorf("symbol %d of %d in section %d: %w", i, t.Count, t.Section.Index, elfimage.ErrOutOfRange)
	}
	var raw elf.Sym32
	off := uint64(t.Section.Off) + uint64(i)*uint64(t.Stride)
	if err := t.img.ReadAt(off, &raw); err != nil {
		return Symbol{}, fmt.Errorf("reading symbol %d: %w", i, err)
	}
	return Symbol{
		NameOff: raw.Name,
		Value:   raw.Value,
		Size:    raw.Size,
		Info:    raw.Info,
		Other:   raw.Other,
		Shndx:   elf.SectionIndex(raw.Shndx),
	}, nil
}

func (t *SymbolTable) Name(s Symbol) (string, error) {
	return t.Strings.Lookup(s.NameOff)
}
