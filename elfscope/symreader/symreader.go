package symreader

import (
	"debug/elf"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
)

var log = logrus.WithField("component", "symreader")

// Kind classifies a symbol by its section index.
type Kind int

const (
	KindDefined Kind = iota
	KindUndefined
	KindAbsolute
	KindCommon
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindAbsolute:
		return "absolute"
	case KindCommon:
		return "common"
	default:
		return "defined"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func kindOf(shndx elf.SectionIndex) Kind {
	switch shndx {
	case elf.SHN_UNDEF:
		return KindUndefined
	case elf.SHN_ABS:
		return KindAbsolute
	case elf.SHN_COMMON:
		return KindCommon
	default:
		return KindDefined
	}
}

type Entry struct {
	Index        int              `json:"index"`
	Value        uint32           `json:"value"`
	Size         uint32           `json:"size"`
	Bind         elf.SymBind      `json:"-"`
	Type         elf.SymType      `json:"-"`
	SectionIndex elf.SectionIndex `json:"section_index"`
	Kind         Kind             `json:"kind"`
	// SectionName is empty unless Kind is KindDefined.
	SectionName string `json:"section_name,omitempty"`
	Name        string `json:"name"`
}

// Symbols yields the entries of the first SHT_SYMTAB section in table order.
func Symbols(h *elfheader.Header, img *elfimage.Image) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		sec, err := h.FindSection(img, elf.SHT_SYMTAB)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		tab, err := h.SymbolTable(img, sec)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		secNames, err := h.SectionNames(img)
		if err != nil {
			yield(Entry{}, fmt.Errorf("section names: %w", err))
			return
		}
		log.Debugf("reading %d symbols from section %d", tab.Count, sec.Index)

		for i := uint32(0); i < tab.Count; i++ {
			e, err := entry(h, img, tab, secNames, i)
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

func entry(h *elfheader.Header, img *elfimage.Image, tab *elfheader.SymbolTable, secNames elfheader.StringTable, i uint32) (Entry, error) {
	sym, err := tab.At(i)
	if err != nil {
		return Entry{}, err
	}
	name, err := tab.Name(sym)
	if err != nil {
		return Entry{}, fmt.Errorf("name of symbol %d: %w", i, err)
	}
	e := Entry{
		Index:        int(i),
		Value:        sym.Value,
		Size:         sym.Size,
		Bind:         sym.Bind(),
		Type:         sym.Type(),
		SectionIndex: sym.Shndx,
		Kind:         kindOf(sym.Shndx),
		Name:         name,
	}
	if e.Kind != KindDefined {
		return e, nil
	}
	owner, err := h.SectionAt(img, uint32(sym.Shndx))
	if err != nil {
		return Entry{}, fmt.Errorf("section of symbol %d (%s): %w", i, name, err)
	}
	if e.SectionName, err = secNames.Lookup(owner.NameOff); err != nil {
		return Entry{}, fmt.Errorf("section name of symbol %d (%s): %w", i, name, err)
	}
	return e, nil
}

func List(h *elfheader.Header, img *elfimage.Image) ([]Entry, error) {
	var entries []Entry
	for e, err := range Symbols(h, img) {
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
