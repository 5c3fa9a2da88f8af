package runspec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	triggerStart = "start"
	triggerEnd   = "end"
)

// ParseProbes expands a probe string such as "0", "0,3", "0:3" or "0,2:4".
// Ranges are inclusive; author order is kept and duplicates are dropped.
func ParseProbes(s string) ([]string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, errors.New("probe string is empty")
	}
	seen := map[int]struct{}{}
	var probes []string
	add := func(p int) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		probes = append(probes, strconv.Itoa(p))
	}
	for _, token := range strings.Split(trimmed, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("probe string %q: empty element", s)
		}
		lo, hi, isRange := strings.Cut(token, ":")
		first, err := parseIndex(lo)
		if err != nil {
			return nil, fmt.Errorf("probe string %q: %w", s, err)
		}
		if !isRange {
			add(first)
			continue
		}
		last, err := parseIndex(hi)
		if err != nil {
			return nil, fmt.Errorf("probe string %q: %w", s, err)
		}
		if last < first {
			return nil, fmt.Errorf("probe string %q: descending range %d:%d", s, first, last)
		}
		for p := first; p <= last; p++ {
			add(p)
		}
	}
	return probes, nil
}

func parseIndex(token string) (int, error) {
	token = strings.TrimSpace(token)
	value, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", token)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative index %d", value)
	}
	return value, nil
}

// TriggerRange is an inclusive trigger index range. Open bounds stand for the
// lowest or highest trigger present on disk.
type TriggerRange struct {
	First     int
	Last      int
	OpenStart bool
	OpenEnd   bool
}

// BoundsFunc reports the lowest and highest trigger indices found on disk.
type BoundsFunc func() (first, last int, err error)

// ParseTriggers parses "first,last" where first may be "start" and last may be "end".
func ParseTriggers(s string) (TriggerRange, error) {
	first, last, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return TriggerRange{}, fmt.Errorf("trigger string %q: expected first,last", s)
	}
	first = strings.ToLower(strings.TrimSpace(first))
	last = strings.ToLower(strings.TrimSpace(last))

	var tr TriggerRange
	var err error
	if first == triggerStart {
		tr.OpenStart = true
	} else if tr.First, err = parseIndex(first); err != nil {
		return TriggerRange{}, fmt.Errorf("trigger string %q: %w", s, err)
	}
	if last == triggerEnd {
		tr.OpenEnd = true
	} else if tr.Last, err = parseIndex(last); err != nil {
		return TriggerRange{}, fmt.Errorf("trigger string %q: %w", s, err)
	}
	if !tr.OpenStart && !tr.OpenEnd && tr.Last < tr.First {
		return TriggerRange{}, fmt.Errorf("trigger string %q: last %d precedes first %d", s, tr.Last, tr.First)
	}
	return tr, nil
}

// Symbolic reports whether either bound still needs resolution.
func (t TriggerRange) Symbolic() bool {
	return t.OpenStart || t.OpenEnd
}

// Resolve replaces open bounds using bounds. bounds is not called for a fully
// numeric range.
func (t TriggerRange) Resolve(bounds BoundsFunc) (TriggerRange, error) {
	if !t.Symbolic() {
		return t, nil
	}
	if bounds == nil {
		return TriggerRange{}, errors.New("trigger range has symbolic bounds but no folder to scan")
	}
	lo, hi, err := bounds()
	if err != nil {
		return TriggerRange{}, err
	}
	out := TriggerRange{First: t.First, Last: t.Last}
	if t.OpenStart {
		out.First = lo
	}
	if t.OpenEnd {
		out.Last = hi
	}
	if out.Last < out.First {
		return TriggerRange{}, fmt.Errorf("resolved trigger range %d,%d is descending", out.First, out.Last)
	}
	return out, nil
}

// String renders the range in the CatGT "first,last" form.
func (t TriggerRange) String() string {
	first := strconv.Itoa(t.First)
	if t.OpenStart {
		first = triggerStart
	}
	last := strconv.Itoa(t.Last)
	if t.OpenEnd {
		last = triggerEnd
	}
	return first + "," + last
}
