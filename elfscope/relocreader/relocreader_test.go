package relocreader

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
	"github.com/chains-project/elfscope/elfscope/internal/elftest"
)

func load(t *testing.T, data []byte) (*elfheader.Header, *elfimage.Image) {
	t.Helper()
	img, err := elfimage.Validate(data)
	require.NoError(t, err)
	h, err := elfheader.Parse(img)
	require.NoError(t, err)
	return h, img
}

// dynObject builds an object with a two-symbol dynsym and one REL section
// holding rels.
func dynObject(rels ...elf.Rel32) *elftest.Builder {
	b := elftest.New(elf.EM_386)
	strs := elftest.NewStrtab()
	syms := elftest.Symbols(
		elf.Sym32{},
		elf.Sym32{Name: strs.Put("target"), Value: 0xdeadbeef, Shndx: uint16(elf.SHN_ABS)},
	)
	dynstr := b.Add(elftest.Section{Name: ".dynstr", Type: elf.SHT_STRTAB, Data: strs.Bytes()})
	dynsym := b.Add(elftest.Section{Name: ".dynsym", Type: elf.SHT_DYNSYM, Link: dynstr, Entsize: elf.Sym32Size, Data: syms})
	b.Add(elftest.Section{Name: ".rel.dyn", Type: elf.SHT_REL, Link: dynsym, Entsize: 8, Data: elftest.Rels(rels...)})
	return b
}

func TestList_Sample(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	groups, err := List(h, img)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	dyn := groups[0]
	assert.Equal(t, ".rel.dyn", dyn.SectionName)
	assert.Equal(t, 8, dyn.SectionIndex)
	assert.Equal(t, uint32(2), dyn.Count)
	require.Len(t, dyn.Entries, 2)

	assert.Equal(t, Entry{
		Offset:      0x1000,
		Info:        0x105,
		Type:        0x05,
		TypeName:    "R_386_COPY",
		SymbolIndex: 1,
		SymbolValue: 0,
		SymbolName:  "puts",
	}, dyn.Entries[0])
	assert.Equal(t, "environ", dyn.Entries[1].SymbolName)
	assert.Equal(t, uint32(0x2000), dyn.Entries[1].SymbolValue)
	assert.Equal(t, "R_386_GLOB_DAT", dyn.Entries[1].TypeName)

	plt := groups[1]
	assert.Equal(t, ".rel.plt", plt.SectionName)
	require.Len(t, plt.Entries, 1)
	assert.Equal(t, "R_386_JMP_SLOT", plt.Entries[0].TypeName)
	assert.Equal(t, "puts", plt.Entries[0].SymbolName)
}

func TestList_InfoWordSplit(t *testing.T) {
	h, img := load(t, dynObject(elf.Rel32{Off: 0x40, Info: 0x00000105}).Build())

	groups, err := List(h, img)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Entries, 1)

	e := groups[0].Entries[0]
	assert.Equal(t, uint8(0x05), e.Type)
	assert.Equal(t, uint32(1), e.SymbolIndex)
	assert.Equal(t, uint32(0xdeadbeef), e.SymbolValue)
	assert.Equal(t, "target", e.SymbolName)
}

func TestList_NoRelSections(t *testing.T) {
	b := elftest.New(elf.EM_386)
	b.Add(elftest.Section{Name: ".text", Type: elf.SHT_PROGBITS, Data: []byte{0xc3}})
	h, img := load(t, b.Build())

	groups, err := List(h, img)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestList_NoRelSectionsNeedsNoDynsym(t *testing.T) {
	b := elftest.New(elf.EM_386)
	b.Add(elftest.Section{Name: ".text", Type: elf.SHT_PROGBITS, Data: []byte{0xc3}})
	h, img := load(t, b.Build())

	_, err := h.FindSection(img, elf.SHT_DYNSYM)
	require.ErrorIs(t, err, elfimage.ErrMissingTable)

	groups, err := List(h, img)
	require.NoError(t, err)
	assert.Empty(t, groups)

	data := b.Build()
	elftest.PatchHeader(data, func(hdr *elf.Header32) {
		hdr.Shnum = 0
		hdr.Shoff = 0
		hdr.Shstrndx = 0
	})
	h, img = load(t, data)
	groups, err = List(h, img)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestList_MissingDynsym(t *testing.T) {
	b := elftest.New(elf.EM_386)
	b.Add(elftest.Section{Name: ".rel.text", Type: elf.SHT_REL, Entsize: 8, Data: elftest.Rels(elf.Rel32{Info: 0x101})})
	h, img := load(t, b.Build())

	_, err := List(h, img)
	require.ErrorIs(t, err, elfimage.ErrMissingTable)
	var missing *elfimage.MissingTableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "dynsym", missing.Table)
}

func TestList_SymbolIndexPastDynsym(t *testing.T) {
	h, img := load(t, dynObject(elf.Rel32{Off: 0x40, Info: elf.R_INFO32(2, 1)}).Build())

	_, err := List(h, img)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestList_ZeroEntrySize(t *testing.T) {
	data := dynObject(elf.Rel32{Info: 0x101}).Build()
	elftest.PatchSection(data, 3, func(s *elf.Section32) { s.Entsize = 0 })
	h, img := load(t, data)

	_, err := List(h, img)
	assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
}

func TestList_EmptyRelSection(t *testing.T) {
	h, img := load(t, dynObject().Build())

	groups, err := List(h, img)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Zero(t, groups[0].Count)
	assert.Empty(t, groups[0].Entries)
}

func TestList_ManyGroupsKeepSectionOrder(t *testing.T) {
	b := dynObject(elf.Rel32{Info: 0x101})
	for i := 0; i < 16; i++ {
		b.Add(elftest.Section{Name: ".rel.extra", Type: elf.SHT_REL, Link: 2, Entsize: 8,
			Data: elftest.Rels(elf.Rel32{Off: uint32(i), Info: elf.R_INFO32(1, uint32(elf.R_386_32))})})
	}
	h, img := load(t, b.Build())

	groups, err := List(h, img)
	require.NoError(t, err)
	require.Len(t, groups, 17)
	for i := 1; i < len(groups); i++ {
		assert.Greater(t, groups[i].SectionIndex, groups[i-1].SectionIndex)
		assert.Equal(t, uint32(i-1), groups[i].Entries[0].Offset)
	}
}

func TestList_IsRepeatable(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	first, err := List(h, img)
	require.NoError(t, err)
	second, err := List(h, img)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "R_386_PC32", TypeName(elf.EM_386, uint8(elf.R_386_PC32)))
	assert.Equal(t, "R_ARM_ABS32", TypeName(elf.EM_ARM, uint8(elf.R_ARM_ABS32)))
	assert.Equal(t, "7", TypeName(elf.EM_X86_64, 7))
}
