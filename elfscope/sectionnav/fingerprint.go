package sectionnav

import (
	"sort"

	"github.com/cespare/xxhash"

	"github.com/chains-project/elfscope/elfscope/elfheader"
	"github.com/chains-project/elfscope/elfscope/elfimage"
)

type Fingerprint struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Size  uint32 `json:"size"`
	Sum   uint64 `json:"sum"`
}

// Fingerprints hashes the file contents of every section. Sections without
// file contents get a zero sum.
func Fingerprints(h *elfheader.Header, img *elfimage.Image) ([]Fingerprint, error) {
	var fps []Fingerprint
	for e, err := range Sections(h, img) {
		if err != nil {
			return nil, err
		}
		sec, err := h.SectionAt(img, uint32(e.Index))
		if err != nil {
			return nil, err
		}
		data, err := sec.Data(img)
		if err != nil {
			return nil, err
		}
		fp := Fingerprint{Index: e.Index, Name: e.Name, Size: uint32(len(data))}
		if len(data) > 0 {
			fp.Sum = xxhash.Sum64(data)
		}
		fps = append(fps, fp)
	}
	return fps, nil
}

// Duplicates groups sections with identical, non-empty contents. Groups are
// ordered by their first section index.
func Duplicates(fps []Fingerprint) [][]Fingerprint {
	type key struct {
		size uint32
		sum  uint64
	}
	byKey := make(map[key][]Fingerprint)
	for _, fp := range fps {
		if fp.Size == 0 {
			continue
		}
		k := key{fp.Size, fp.Sum}
		byKey[k] = append(byKey[k], fp)
	}

	var groups [][]Fingerprint
	for _, g := range byKey {
		if len(g) > 1 {
			groups = append(groups, g)
		}
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0].Index < groups[j][0].Index
	})
	return groups
}

// Savings is the number of bytes freed by keeping one copy per group.
func Savings(groups [][]Fingerprint) uint64 {
	var saved uint64
	for _, g := range groups {
		saved += uint64(len(g)-1) * uint64(g[0].Size)
	}
	return saved
}
