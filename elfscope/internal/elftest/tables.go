package elftest

import (
	"debug/elf"
	"encoding/binary"
)

type Strtab struct {
	buf     []byte
	offsets map[string]uint32
}

func NewStrtab() *Strtab {
	return &Strtab{buf: []byte{0}, offsets: map[string]uint32{"": 0}}
}

func (s *Strtab) Put(name string) uint32 {
	if off, ok := s.offsets[name]; ok {
		return off
	}
	off := uint32(len(s.buf))
	s.offsets[name] = off
	s.buf = append(s.buf, name...)
	s.buf = append(s.buf, 0)
	return off
}

func (s *Strtab) Bytes() []byte {
	return s.buf
}

func Symbols(syms ...elf.Sym32) []byte {
	var out []byte
	for _, s := range syms {
		out, _ = binary.Append(out, binary.NativeEndian, s)
	}
	return out
}

func Rels(rels ...elf.Rel32) []byte {
	var out []byte
	for _, r := range rels {
		out, _ = binary.Append(out, binary.NativeEndian, r)
	}
	return out
}

// Sample builds a small i386 relocatable object:
//
//	1 .text      PROGBITS
//	2 .data      PROGBITS
//	3 .bss       NOBITS
//	4 .strtab    STRTAB
//	5 .symtab    SYMTAB   main, counter, printf (undef), abs_sym, common_sym
//	6 .dynstr    STRTAB
//	7 .dynsym    DYNSYM   puts, environ
//	8 .rel.dyn   REL      2 entries
//	9 .rel.plt   REL      1 entry
//	10 .shstrtab
func Sample() *Builder {
	b := New(elf.EM_386)
	b.Entry = 0x8048000

	b.Add(Section{Name: ".text", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		Data: []byte{0x55, 0x89, 0xe5, 0x90, 0x90, 0x90, 0x90, 0x90, 0x5d, 0xc3, 0, 0, 0, 0, 0, 0}})
	b.Add(Section{Name: ".data", Type: elf.SHT_PROGBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE,
		Data: []byte{1, 0, 0, 0, 2, 0, 0, 0}})
	b.Add(Section{Name: ".bss", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Size: 32})

	strs := NewStrtab()
	syms := Symbols(
		elf.Sym32{},
		elf.Sym32{Name: strs.Put("main"), Value: 0x0, Size: 16, Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Shndx: 1},
		elf.Sym32{Name: strs.Put("counter"), Value: 0x4, Size: 4, Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT), Shndx: 2},
		elf.Sym32{Name: strs.Put("printf"), Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_NOTYPE), Shndx: uint16(elf.SHN_UNDEF)},
		elf.Sym32{Name: strs.Put("abs_sym"), Value: 0x1234, Info: elf.ST_INFO(elf.STB_LOCAL, elf.STT_NOTYPE), Shndx: uint16(elf.SHN_ABS)},
		elf.Sym32{Name: strs.Put("common_sym"), Value: 4, Size: 8, Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT), Shndx: uint16(elf.SHN_COMMON)},
	)
	strtab := b.Add(Section{Name: ".strtab", Type: elf.SHT_STRTAB, Data: strs.Bytes()})
	b.Add(Section{Name: ".symtab", Type: elf.SHT_SYMTAB, Link: strtab, Info: 1, Entsize: elf.Sym32Size, Data: syms})

	dynstrs := NewStrtab()
	dynsyms := Symbols(
		elf.Sym32{},
		elf.Sym32{Name: dynstrs.Put("puts"), Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC), Shndx: uint16(elf.SHN_UNDEF)},
		elf.Sym32{Name: dynstrs.Put("environ"), Value: 0x2000, Size: 4, Info: elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT), Shndx: 2},
	)
	dynstr := b.Add(Section{Name: ".dynstr", Type: elf.SHT_STRTAB, Flags: elf.SHF_ALLOC, Data: dynstrs.Bytes()})
	dynsym := b.Add(Section{Name: ".dynsym", Type: elf.SHT_DYNSYM, Flags: elf.SHF_ALLOC, Link: dynstr, Info: 1, Entsize: elf.Sym32Size, Data: dynsyms})

	b.Add(Section{Name: ".rel.dyn", Type: elf.SHT_REL, Flags: elf.SHF_ALLOC, Link: dynsym, Entsize: 8, Data: Rels(
		elf.Rel32{Off: 0x1000, Info: elf.R_INFO32(1, uint32(elf.R_386_COPY))},
		elf.Rel32{Off: 0x1004, Info: elf.R_INFO32(2, uint32(elf.R_386_GLOB_DAT))},
	)})
	b.Add(Section{Name: ".rel.plt", Type: elf.SHT_REL, Flags: elf.SHF_ALLOC, Link: dynsym, Entsize: 8, Data: Rels(
		elf.Rel32{Off: 0x2000, Info: elf.R_INFO32(1, uint32(elf.R_386_JMP_SLOT))},
	)})

	b.Progs = []elf.Prog32{
		{Type: uint32(elf.PT_LOAD), Off: 0, Vaddr: 0x8048000, Paddr: 0x8048000, Filesz: 0x100, Memsz: 0x100, Flags: uint32(elf.PF_R | elf.PF_X), Align: 0x1000},
	}
	return b
}
