package elfheader

import (
	"debug/elf"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chains-project/elfscope/elfscope/elfimage"
	"github.com/chains-project/elfscope/elfscope/internal/elftest"
)

func load(t *testing.T, data []byte) (*Header, *elfimage.Image) {
	t.Helper()
	img, err := elfimage.Validate(data)
	require.NoError(t, err)
	h, err := Parse(img)
	require.NoError(t, err)
	return h, img
}

func TestParse_Sample(t *testing.T) {
	h, _ := load(t, elftest.Sample().Build())

	assert.Equal(t, elf.ELFCLASS32, h.Class)
	assert.Equal(t, elf.EM_386, h.Machine)
	assert.Equal(t, elf.ET_REL, h.Type)
	assert.Equal(t, uint32(0x8048000), h.Entry)
	assert.Equal(t, uint16(11), h.Shnum)
	assert.Equal(t, uint16(10), h.Shstrndx)
	assert.Equal(t, uint16(40), h.Shentsize)
	assert.Equal(t, uint16(1), h.Phnum)
	assert.NotEqual(t, EncodingInvalid, h.Encoding)
}

func TestParse_UnknownEncodingIsReported(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	b := elftest.Sample()
	b.Data = elf.Data(7)
	h, _ := load(t, b.Build())

	assert.Equal(t, EncodingInvalid, h.Encoding)
	assert.Equal(t, "invalid", h.Encoding.String())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestParse_RejectsBadTables(t *testing.T) {
	cases := map[string]func(*elf.Header32){
		"shoff past end":    func(h *elf.Header32) { h.Shoff = 0xffff0000 },
		"shnum past end":    func(h *elf.Header32) { h.Shnum = 0x7fff },
		"small shentsize":   func(h *elf.Header32) { h.Shentsize = 8 },
		"phoff past end":    func(h *elf.Header32) { h.Phoff = 0xffffff00 },
		"small phentsize":   func(h *elf.Header32) { h.Phentsize = 4 },
		"64-bit class":      func(h *elf.Header32) { h.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS64) },
		"overflowing shoff": func(h *elf.Header32) { h.Shoff = 0xffffffff; h.Shnum = 2 },
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			data := elftest.Sample().Build()
			elftest.PatchHeader(data, patch)
			img, err := elfimage.Validate(data)
			require.NoError(t, err)

			_, err = Parse(img)
			assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
		})
	}
}

func TestParse_TruncatedHeader(t *testing.T) {
	img, err := elfimage.Validate(elftest.Sample().Build()[:30])
	require.NoError(t, err)

	_, err = Parse(img)
	assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
}

func TestParse_NoSectionsIsValid(t *testing.T) {
	data := elftest.Sample().Build()
	elftest.PatchHeader(data, func(h *elf.Header32) {
		h.Shnum = 0
		h.Shentsize = 0
	})
	h, img := load(t, data)

	_, err := h.SectionAt(img, 0)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestSectionAt(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	null, err := h.SectionAt(img, 0)
	require.NoError(t, err)
	assert.Equal(t, elf.SHT_NULL, null.Type)

	symtab, err := h.SectionAt(img, 5)
	require.NoError(t, err)
	assert.Equal(t, elf.SHT_SYMTAB, symtab.Type)
	assert.Equal(t, uint32(4), symtab.Link)
	assert.Equal(t, uint32(5), symtab.Index)

	_, err = h.SectionAt(img, uint32(h.Shnum))
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)

	_, err = h.SectionAt(img, 1<<20)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestFindSection(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	sec, err := h.FindSection(img, elf.SHT_DYNSYM)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), sec.Index)

	sec, err = h.FindSection(img, elf.SHT_REL)
	require.NoError(t, err)
	assert.Equal(t, uint32(8), sec.Index)

	_, err = h.FindSection(img, elf.SHT_HASH)
	assert.ErrorIs(t, err, elfimage.ErrMissingTable)
}

func TestSectionData(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	data, err := h.SectionAt(img, 2)
	require.NoError(t, err)
	b, err := data.Data(img)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 2, 0, 0, 0}, b)

	bss, err := h.SectionAt(img, 3)
	require.NoError(t, err)
	b, err = bss.Data(img)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestProgramAt(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	p, err := h.ProgramAt(img, 0)
	require.NoError(t, err)
	assert.Equal(t, elf.PT_LOAD, p.Type)
	assert.Equal(t, uint32(0x8048000), p.Vaddr)
	assert.Equal(t, elf.PF_R|elf.PF_X, p.Flags)

	_, err = h.ProgramAt(img, 1)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestStringTable(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	names, err := h.SectionNames(img)
	require.NoError(t, err)

	text, err := h.SectionAt(img, 1)
	require.NoError(t, err)
	name, err := names.Lookup(text.NameOff)
	require.NoError(t, err)
	assert.Equal(t, ".text", name)

	empty, err := names.Lookup(0)
	require.NoError(t, err)
	assert.Equal(t, "", empty)

	_, err = names.Lookup(uint32(names.Len()))
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestStringTable_UnterminatedRunsToEnd(t *testing.T) {
	b := elftest.New(elf.EM_386)
	idx := b.Add(elftest.Section{Name: ".strtab", Type: elf.SHT_STRTAB, Data: []byte("\x00abc")})
	h, img := load(t, b.Build())

	tab, err := h.StringTable(img, idx)
	require.NoError(t, err)
	s, err := tab.Lookup(1)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
}

func TestStringTable_OutsideImage(t *testing.T) {
	data := elftest.Sample().Build()
	elftest.PatchSection(data, 10, func(s *elf.Section32) { s.Off = uint32(len(data)) + 16 })
	h, img := load(t, data)

	_, err := h.SectionNames(img)
	assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
}

func TestSymbolTable(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	sec, err := h.FindSection(img, elf.SHT_SYMTAB)
	require.NoError(t, err)
	tab, err := h.SymbolTable(img, sec)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), tab.Count)
	assert.Equal(t, uint32(elf.Sym32Size), tab.Stride)

	sym, err := tab.At(2)
	require.NoError(t, err)
	name, err := tab.Name(sym)
	require.NoError(t, err)
	assert.Equal(t, "counter", name)
	assert.Equal(t, uint32(4), sym.Value)
	assert.Equal(t, elf.STB_GLOBAL, sym.Bind())
	assert.Equal(t, elf.STT_OBJECT, sym.Type())

	_, err = tab.At(6)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestSymbolTable_RejectsOtherSections(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	sec, err := h.SectionAt(img, 1)
	require.NoError(t, err)
	_, err = h.SymbolTable(img, sec)
	assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
}

func TestSymbolTable_EntrySizeMismatchWarns(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	data := elftest.Sample().Build()
	elftest.PatchSection(data, 5, func(s *elf.Section32) { s.Entsize = 0 })
	h, img := load(t, data)

	sec, err := h.SectionAt(img, 5)
	require.NoError(t, err)
	tab, err := h.SymbolTable(img, sec)
	require.NoError(t, err)

	assert.Equal(t, uint32(elf.Sym32Size), tab.Stride)
	assert.Equal(t, uint32(6), tab.Count)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Contains(t, hook.LastEntry().Message, "symbol entry size 0")
}

func TestRel(t *testing.T) {
	r := Rel{Off: 0x1000, Info: 0x00000105}
	assert.Equal(t, uint8(0x05), r.Type())
	assert.Equal(t, uint32(1), r.SymbolIndex())

	r = Rel{Info: 0xabcdef07}
	assert.Equal(t, uint8(0x07), r.Type())
	assert.Equal(t, uint32(0xabcdef), r.SymbolIndex())
}

func TestRelTable(t *testing.T) {
	h, img := load(t, elftest.Sample().Build())

	sec, err := h.SectionAt(img, 8)
	require.NoError(t, err)
	tab, err := h.RelTable(img, sec)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), tab.Count)

	r, err := tab.At(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1004), r.Off)
	assert.Equal(t, uint32(2), r.SymbolIndex())

	_, err = tab.At(2)
	assert.ErrorIs(t, err, elfimage.ErrOutOfRange)
}

func TestRelTable_ZeroEntrySize(t *testing.T) {
	data := elftest.Sample().Build()
	elftest.PatchSection(data, 8, func(s *elf.Section32) { s.Entsize = 0 })
	h, img := load(t, data)

	sec, err := h.SectionAt(img, 8)
	require.NoError(t, err)
	_, err = h.RelTable(img, sec)
	assert.ErrorIs(t, err, elfimage.ErrInvalidFormat)
}
