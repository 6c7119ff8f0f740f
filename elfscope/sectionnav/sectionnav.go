package sectionnav

import (
	"debug/elf"
	"fmt"
	"iter"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
)

type Entry struct {
	Index  int             `json:"index"`
	Name   string          `json:"name"`
	Offset uint32          `json:"offset"`
	Size   uint32          `json:"size"`
	Type   elf.SectionType `json:"-"`
	Tag    string          `json:"type"`
}

// Sections yields every section in index order. On the first failure it
// yields the error and stops. A file without section headers yields nothing.
func Sections(h *elfheader.Header, img *elfimage.Image) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if h.Shnum == 0 {
			return
		}
		names, err := h.SectionNames(img)
		if err != nil {
			yield(Entry{}, fmt.Errorf("section names: %w", err))
			return
		}
		for i := uint32(0); i < uint32(h.Shnum); i++ {
			sec, err := h.SectionAt(img, i)
			if err != nil {
				yield(Entry{}, err)
				return
			}
			name, err := names.Lookup(sec.NameOff)
			if err != nil {
				yield(Entry{}, fmt.Errorf("name of section %d: %w", i, err))
				return
			}
			e := Entry{
				Index:  int(i),
				Name:   name,
				Offset: sec.Off,
				Size:   sec.Size,
				Type:   sec.Type,
				Tag:    TypeTag(sec.Type),
			}
			if !yield(e, nil) {
				return
			}
		}
	}
}

func List(h *elfheader.Header, img *elfimage.Image) ([]Entry, error) {
	entries := make([]Entry, 0, h.Shnum)
	for e, err := range Sections(h, img) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func TypeTag(t elf.SectionType) string {
	switch t {
	case elf.SHT_NULL:
		return "inactive"
	case elf.SHT_PROGBITS:
		return "program"
	case elf.SHT_SYMTAB:
		return "symtab"
	case elf.SHT_STRTAB:
		return "string table"
	case elf.SHT_RELA:
		return "relocation addends"
	case elf.SHT_HASH:
		return "hash"
	case elf.SHT_DYNAMIC:
		return "dynamic"
	case elf.SHT_NOTE:
		return "note"
	case elf.SHT_NOBITS:
		return "nobits"
	case elf.SHT_REL:
		return "relocation"
	case elf.SHT_SHLIB:
		return "lib"
	case elf.SHT_DYNSYM:
		return "dynsym"
	case elf.SHT_LOPROC:
		return "loproc"
	case elf.SHT_HIPROC:
		return "hiproc"
	case elf.SHT_LOUSER:
		return "louser"
	case elf.SHT_HIUSER:
		return "hiuser"
	}
	return "unknown type"
}
