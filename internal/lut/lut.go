// Package lut loads and samples 3D color lookup tables in the plain-text
// .cube interchange format.
//
// The parser is deliberately permissive: it never fails, it skips anything
// it cannot read, and it performs no shape validation. Callers that need a
// well-formed cube must check Table.Valid() themselves. Asset stores (file
// system and HTTP) are provided for fetching raw LUT text by name; caching
// parsed tables across renders is the caller's responsibility.
package lut

import (
	"strconv"
	"strings"
)

// DefaultSize is the grid edge length assumed when a cube file carries no
// LUT_3D_SIZE directive.
const DefaultSize = 33

// Table is a 3D lookup table sampled on a Size×Size×Size regular grid.
//
// Data holds flat RGB triples in cube file order (red index varies fastest).
// A well-formed table satisfies len(Data) == 3*Size*Size*Size, but Parse
// does not enforce that.
type Table struct {
	Size int       `json:"size"`
	Data []float64 `json:"data"`
}

// Valid reports whether the table has the exact sample count its declared
// grid size requires.
func (t Table) Valid() bool {
	return t.Size > 1 && len(t.Data) == 3*t.Size*t.Size*t.Size
}

// Parse reads .cube-style text into a Table. It never returns an error.
//
// Grammar, line by line:
//   - blank lines and lines starting with '#' are ignored
//   - "LUT_3D_SIZE <n>" sets the grid size (DefaultSize if absent)
//   - any other line is split on whitespace; if it yields at least three
//     numeric tokens and the first token parses as a number, the first
//     three values are appended as one RGB triple
//
// Malformed lines are skipped silently. TITLE and DOMAIN_* directives fall
// through the numeric check and are skipped the same way.
func Parse(text string) Table {
	t := Table{Size: DefaultSize}

	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "#") {
			continue
		}

		if fields[0] == "LUT_3D_SIZE" {
			if len(fields) >= 2 {
				if n, err := strconv.Atoi(fields[1]); err == nil {
					t.Size = n
				}
			}
			continue
		}

		// A data line must start with a number; the first three numeric
		// tokens on it become one RGB triple. Non-numeric tokens in the
		// middle are dropped rather than failing the line.
		if _, err := strconv.ParseFloat(fields[0], 64); err != nil {
			continue
		}
		nums := make([]float64, 0, len(fields))
		for _, f := range fields {
			if v, err := strconv.ParseFloat(f, 64); err == nil {
				nums = append(nums, v)
			}
		}
		if len(nums) >= 3 {
			t.Data = append(t.Data, nums[0], nums[1], nums[2])
		}
	}

	return t
}
