package symreader

import (
	"fmt"
	"sort"
)

type SymbolInfo struct {
	Name  string
	Start uint64
	End   uint64
}

// Resolver maps addresses back to the symbols that cover them.
type Resolver struct {
	cache []SymbolInfo
}

// NewResolver keeps defined symbols with a non-zero value.
func NewResolver(entries []Entry) *Resolver {
	r := &Resolver{}
	for _, e := range entries {
		if e.Value == 0 || e.Kind != KindDefined {
			continue
		}
		r.cache = append(r.cache, SymbolInfo{
			Name:  e.Name,
			Start: uint64(e.Value),
			End:   uint64(e.Value) + uint64(e.Size),
		})
	}
	sort.SliceStable(r.cache, func(i, j int) bool {
		return r.cache[i].Start < r.cache[j].Start
	})
	return r
}

func (r *Resolver) Len() int {
	return len(r.cache)
}

func (r *Resolver) Resolve(address uint64) string {
	for _, sym := range r.cache {
		if sym.Start > address {
			break
		}
		if address < sym.End {
			return sym.Name
		}
	}
	return fmt.Sprintf("0x%x", address)
}

func (r *Resolver) ResolveAll(addresses []uint64) []string {
	resolved := make([]string, len(addresses))
	for i, addr := range addresses {
		resolved[i] = r.Resolve(addr)
	}
	return resolved
}
