package ingest

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/discrepancy/internal/document"
)

// numericPattern validates a cell after cleanup. Matches integers,
// decimals and scientific notation.
var numericPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var numberCleaner = strings.NewReplacer(
	"$", "",
	"€", "", // Euro
	"£", "", // Pound
	",", "",
	" ", "",
	"−", "-", // Minus sign
)

// parseValue converts a body cell to a value and reports whether it was
// written as a percentage. Blank cells yield NaN. Accounting negatives
// "(12.5)", currency symbols and thousands separators are accepted.
func parseValue(raw string) (float64, document.Unit, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return math.NaN(), "", nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	unit := document.UnitNumber
	if strings.HasSuffix(s, "%") {
		unit = document.UnitPercent
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	s = numberCleaner.Replace(s)
	if negative {
		s = "-" + s
	}

	if !numericPattern.MatchString(s) {
		return 0, "", fmt.Errorf("%q is not a number", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%q: %w", raw, err)
	}
	return v, unit, nil
}
