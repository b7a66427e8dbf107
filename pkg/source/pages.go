// Package source reads the outputs of the external page-text and table
// extractors: the catalog's text export and its overview tables as CSV.
package source

import (
	"fmt"
	"strconv"
	"strings"
)

// PageRange is a set of 1-based page numbers. A nil PageRange selects every page.
type PageRange map[int]bool

// ParsePageRange parses a comma separated list of pages and inclusive
// ranges, e.g. "1-3,7". An empty string or "all" selects every page.
func ParsePageRange(expr string) (PageRange, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || strings.EqualFold(expr, "all") {
		return nil, nil
	}

	pages := make(PageRange)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		first, err := parsePage(lo)
		if err != nil {
			return nil, fmt.Errorf("invalid page range %q: %w", expr, err)
		}
		last := first
		if isRange {
			if last, err = parsePage(hi); err != nil {
				return nil, fmt.Errorf("invalid page range %q: %w", expr, err)
			}
		}
		if last < first {
			return nil, fmt.Errorf("invalid page range %q: %d-%d is descending", expr, first, last)
		}
		for p := first; p <= last; p++ {
			pages[p] = true
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("invalid page range %q: no pages", expr)
	}
	return pages, nil
}

func parsePage(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("page %q is not a number", s)
	}
	if n < 1 {
		return 0, fmt.Errorf("page %d is out of range", n)
	}
	return n, nil
}

// Contains reports whether page is selected.
func (r PageRange) Contains(page int) bool {
	return r == nil || r[page]
}
