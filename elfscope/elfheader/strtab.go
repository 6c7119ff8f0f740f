package elfheader

import (
	"debug/elf"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/chains-project/elfscope/elfscope/elfimage"
)

// StringTable is the content of a string table section.
type StringTable struct {
	Section uint32
	data    []byte
}

func (h *Header) StringTable(img *elfimage.Image, index uint32) (StringTable, error) {
	sec, err := h.SectionAt(img, index)
	if err != nil {
		return StringTable{}, fmt.Errorf("string table: %w", err)
	}
	if sec.Type != elf.SHT_STRTAB {
		log.Warnf("section %d is used as a string table but has type %s", index, sec.Type)
	}
	data, err := img.Slice(uint64(sec.Off), uint64(sec.Size))
	if err != nil {
		return StringTable{}, fmt.Errorf("string table in section %d: %w", index, err)
	}
	return StringTable{Section: index, data: data}, nil
}

// SectionNames returns the section header string table named by e_shstrndx.
func (h *Header) SectionNames(img *elfimage.Image) (StringTable, error) {
	return h.StringTable(img, uint32(h.Shstrndx))
}

// Lookup returns the string starting at off, up to the next NUL or the end of
// the table.
func (t StringTable) Lookup(off uint32) (string, error) {
	if off == 0 && len(t.data) == 0 {
		return "", nil
	}
	if uint64(off) >= uint64(len(t.data)) {
		return "", fmt.Errorf("string offset 0x%x in section %d (0x%x bytes): %w", off, t.Section, len(t.data), elfimage.ErrOutOfRange)
	}
	return unix.ByteSliceToString(t.data[off:]), nil
}

func (t StringTable) Len() int {
	return len(t.data)
}
