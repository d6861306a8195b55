package callgraph

import (
	"fmt"
	"io"
	"strconv"

	"github.com/google/pprof/profile"
)

// WriteProfile encodes the graph as a pprof profile so it can be explored
// with `go tool pprof -http`. Each distinct caller->callee pair becomes a
// two-frame sample whose value is the number of call sites.
func WriteProfile(w io.Writer, g CallGraph, names map[string]string) error {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
		},
		PeriodType: &profile.ValueType{Type: "calls", Unit: "count"},
		Period:     1,
	}

	locations := make(map[string]*profile.Location)
	locationFor := func(addr string) (*profile.Location, error) {
		if loc, ok := locations[addr]; ok {
			return loc, nil
		}
		pc, err := strconv.ParseUint(addr, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("parse address %q: %w", addr, err)
		}

		id := uint64(len(locations) + 1)
		fn := &profile.Function{ID: id, Name: label(names, addr), SystemName: label(names, addr)}
		loc := &profile.Location{
			ID:      id,
			Address: pc,
			Line:    []profile.Line{{Function: fn}},
		}
		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		locations[addr] = loc
		return loc, nil
	}

	for _, caller := range sortedCallers(g) {
		callerLoc, err := locationFor(caller)
		if err != nil {
			return err
		}
		for _, c := range distinctCallees(g[caller]) {
			calleeLoc, err := locationFor(c.addr)
			if err != nil {
				return err
			}
			// Leaf first, as pprof stacks are ordered.
			prof.Sample = append(prof.Sample, &profile.Sample{
				Location: []*profile.Location{calleeLoc, callerLoc},
				Value:    []int64{int64(c.count)},
			})
		}
	}

	if err := prof.CheckValid(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return prof.Write(w)
}
