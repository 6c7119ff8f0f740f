// Package relocreader lists the SHT_REL sections of an ELF32 file and
// resolves each relocation against the dynamic symbol table.
package relocreader

import (
	"debug/elf"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
)

var log = logrus.WithField("component", "relocreader")

type Entry struct {
	Offset      uint32 `json:"offset"`
	Info        uint32 `json:"info"`
	Type        uint8  `json:"type"`
	TypeName    string `json:"type_name"`
	SymbolIndex uint32 `json:"symbol_index"`
	SymbolValue uint32 `json:"symbol_value"`
	SymbolName  string `json:"symbol_name"`
}

// Group is one relocation section and its entries.
type Group struct {
	SectionIndex  int     `json:"section_index"`
	SectionName   string  `json:"section_name"`
	SectionOffset uint32  `json:"section_offset"`
	Count         uint32  `json:"count"`
	Entries       []Entry `json:"entries"`
}

// List returns one group per SHT_REL section, in section order. A file
// without relocation sections yields no groups and needs no dynamic symbol
// table.
func List(h *elfheader.Header, img *elfimage.Image) ([]Group, error) {
	var rels []elfheader.SectionHeader
	for i := uint32(0); i < uint32(h.Shnum); i++ {
		sec, err := h.SectionAt(img, i)
		if err != nil {
			return nil, err
		}
		if sec.Type == elf.SHT_REL {
			rels = append(rels, sec)
		}
	}
	if len(rels) == 0 {
		return []Group{}, nil
	}

	dynsymSec, err := h.FindSection(img, elf.SHT_DYNSYM)
	if err != nil {
		return nil, err
	}
	dynsym, err := h.SymbolTable(img, dynsymSec)
	if err != nil {
		return nil, err
	}
	secNames, err := h.SectionNames(img)
	if err != nil {
		return nil, fmt.Errorf("section names: %w", err)
	}
	log.Debugf("resolving %d relocation sections against %d dynamic symbols", len(rels), dynsym.Count)

	groups := make([]Group, len(rels))
	var g errgroup.Group
	for i, sec := range rels {
		g.Go(func() error {
			group, err := readGroup(h, img, sec, dynsym, secNames)
			if err != nil {
				return err
			}
			groups[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

func readGroup(h *elfheader.Header, img *elfimage.Image, sec elfheader.SectionHeader, dynsym *elfheader.SymbolTable, secNames elfheader.StringTable) (Group, error) {
	name, err := secNames.Lookup(sec.NameOff)
	if err != nil {
		return Group{}, fmt.Errorf("name of section %d: %w", sec.Index, err)
	}
	tab, err := h.RelTable(img, sec)
	if err != nil {
		return Group{}, err
	}

	group := Group{
		SectionIndex:  int(sec.Index),
		SectionName:   name,
		SectionOffset: sec.Off,
		Count:         tab.Count,
		Entries:       make([]Entry, 0, tab.Count),
	}
	for i := uint32(0); i < tab.Count; i++ {
		rel, err := tab.At(i)
		if err != nil {
			return Group{}, err
		}
		sym, err := dynsym.At(rel.SymbolIndex())
		if err != nil {
			return Group{}, fmt.Errorf("relocation %d in %s: %w", i, name, err)
		}
		symName, err := dynsym.Name(sym)
		if err != nil {
			return Group{}, fmt.Errorf("symbol name for relocation %d in %s: %w", i, name, err)
		}
		group.Entries = append(group.Entries, Entry{
			Offset:      rel.Off,
			Info:        rel.Info,
			Type:        rel.Type(),
			TypeName:    TypeName(h.Machine, rel.Type()),
			SymbolIndex: rel.SymbolIndex(),
			SymbolValue: sym.Value,
			SymbolName:  symName,
		})
	}
	return group, nil
}

// TypeName names a relocation type for the machines debug/elf has 32-bit
// tables for.
func TypeName(m elf.Machine, typ uint8) string {
	var s fmt.Stringer
	switch m {
	case elf.EM_386:
		s = elf.R_386(typ)
	case elf.EM_ARM:
		s = elf.R_ARM(typ)
	case elf.EM_MIPS:
		s = elf.R_MIPS(typ)
	case elf.EM_PPC:
		s = elf.R_PPC(typ)
	case elf.EM_SPARC:
		s = elf.R_SPARC(typ)
	default:
		return fmt.Sprintf("%d", typ)
	}
	return s.String()
}
