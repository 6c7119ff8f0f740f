package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
	"github.com/chains-project/elfscope/elfscope/relocreader"
	"github.com/chains-project/elfscope/elfscope/sectionnav"
	"github.com/chains-project/elfscope/elfscope/symreader"
)

type headerReport struct {
	Path      string                    `json:"path"`
	Data      string                    `json:"data"`
	Type      string                    `json:"type"`
	Machine   string                    `json:"machine"`
	Entry     uint32                    `json:"entry"`
	Shoff     uint32                    `json:"section_offset"`
	Shnum     uint16                    `json:"section_entries"`
	Shentsize uint16                    `json:"section_entry_size"`
	Phoff     uint32                    `json:"program_offset"`
	Phnum     uint16                    `json:"program_entries"`
	Phentsize uint16                    `json:"program_entry_size"`
	Segments  []elfheader.ProgramHeader `json:"segments"`
}

func newHeaderReport(s *session) (headerReport, error) {
	h := s.hdr
	r := headerReport{
		Path:      s.path,
		Data:      h.Encoding.String(),
		Type:      h.Type.String(),
		Machine:   h.Machine.String(),
		Entry:     h.Entry,
		Shoff:     h.Shoff,
		Shnum:     h.Shnum,
		Shentsize: h.Shentsize,
		Phoff:     h.Phoff,
		Phnum:     h.Phnum,
		Phentsize: h.Phentsize,
		Segments:  make([]elfheader.ProgramHeader, 0, h.Phnum),
	}
	for i := uint16(0); i < h.Phnum; i++ {
		p, err := h.ProgramAt(s.img, i)
		if err != nil {
			return r, err
		}
		r.Segments = append(r.Segments, p)
	}
	return r, nil
}

func printHeader(w io.Writer, img *elfimage.Image, r headerReport) {
	magic := img.Bytes()
	fmt.Fprintln(w, color.GreenString("%c%c%c", magic[1], magic[2], magic[3]))
	fmt.Fprintf(w, "Data: %s\n", r.Data)
	fmt.Fprintf(w, "Type: %s\n", r.Type)
	fmt.Fprintf(w, "Machine: %s\n", r.Machine)
	fmt.Fprintf(w, "Entry point: 0x%x\n", r.Entry)
	fmt.Fprintf(w, "Section offset: %d\n", r.Shoff)
	fmt.Fprintf(w, "Section entries: %d\n", r.Shnum)
	fmt.Fprintf(w, "Section entries size: %d\n", r.Shentsize)
	fmt.Fprintf(w, "Program offset: %d\n", r.Phoff)
	fmt.Fprintf(w, "Program entries: %d\n", r.Phnum)
	fmt.Fprintf(w, "Program entries size: %d\n", r.Phentsize)
	for _, p := range r.Segments {
		fmt.Fprintf(w, "%02d %s off 0x%x vaddr 0x%08x filesz 0x%x memsz 0x%x %s\n",
			p.Index, p.Type, p.Off, p.Vaddr, p.Filesz, p.Memsz, p.Flags)
	}
}

func printSections(w io.Writer, entries []sectionnav.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%d %s %x %x %s\n", e.Index, e.Name, e.Offset, e.Size, e.Tag)
	}
}

func printSymbols(w io.Writer, entries []symreader.Entry) {
	for _, e := range entries {
		if e.Kind != symreader.KindDefined {
			fmt.Fprintf(w, "%02d %08x %02d %s\n", e.Index, e.Value, uint16(e.SectionIndex), e.Name)
			continue
		}
		fmt.Fprintf(w, "%02d %08x %02d %s %s\n", e.Index, e.Value, uint16(e.SectionIndex), e.SectionName, e.Name)
	}
}

func printRelocations(w io.Writer, groups []relocreader.Group) {
	for _, g := range groups {
		fmt.Fprintln(w, color.GreenString("Relocation section '%s' at offset 0x%x contains %d entries:",
			g.SectionName, g.SectionOffset, g.Count))
		for _, e := range g.Entries {
			fmt.Fprintf(w, "%x %08x %x %x %s\n", e.Offset, e.Info, e.Type, e.SymbolValue, e.SymbolName)
		}
	}
}

func printDuplicates(w io.Writer, groups [][]sectionnav.Fingerprint) {
	for _, g := range groups {
		fmt.Fprint(w, color.WhiteString("%d bytes, %016x:", g[0].Size, g[0].Sum))
		for _, fp := range g {
			fmt.Fprintf(w, " %s", fp.Name)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, color.GreenString("Potential space savings: %d bytes", sectionnav.Savings(groups)))
}

func printLookup(w io.Writer, addresses []uint64, names []string) {
	for i, addr := range addresses {
		fmt.Fprintf(w, "0x%x %s\n", addr, names[i])
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
