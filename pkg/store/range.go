package store

import (
	"math"
	"strconv"
	"strings"
)

// ParseRange parses a single HTTP byte-range expression against a resource of
// the given total size. It returns the inclusive start and end offsets.
//
// Supported forms:
//   - "bytes=start-"      from start to the end; invalid if start >= total
//   - "bytes=-N"          the last min(N, total) bytes; invalid if N or total is 0
//   - "bytes=start-end"   invalid if start > end or end >= total
//
// Multiple ranges and malformed input return ok=false, which callers must
// treat as unsatisfiable rather than ignoring the header.
func ParseRange(header string, total int64) (start, end int64, ok bool) {
	s := strings.TrimSpace(header)
	spec, found := strings.CutPrefix(s, "bytes=")
	if !found {
		return 0, 0, false
	}
	if strings.Contains(spec, ",") {
		return 0, 0, false
	}

	parts := strings.Split(spec, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}

	switch {
	case parts[0] == "":
		// Suffix form: last N bytes.
		n, err := parseOffset(parts[1])
		if err != nil {
			return 0, 0, false
		}
		if n == 0 || total == 0 {
			return 0, 0, false
		}
		if n > total {
			n = total
		}
		return total - n, total - 1, true

	case parts[1] == "":
		// Open-ended form: from start to the last byte.
		first, err := parseOffset(parts[0])
		if err != nil || first >= total {
			return 0, 0, false
		}
		return first, total - 1, true

	default:
		first, err := parseOffset(parts[0])
		if err != nil {
			return 0, 0, false
		}
		last, err := parseOffset(parts[1])
		if err != nil {
			return 0, 0, false
		}
		if first > last || last >= total {
			return 0, 0, false
		}
		return first, last, true
	}
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, strconv.ErrRange
	}
	return int64(n), nil
}
