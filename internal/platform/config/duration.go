package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Grammar: amount unit, where unit is one of s, m, h, d. No whitespace or sign.
var durationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Unit", Pattern: `[smhd]`},
})

type durationExpr struct {
	Amount string `parser:"@Int"`
	Unit   string `parser:"@Unit"`
}

var durationParser = participle.MustBuild[durationExpr](participle.Lexer(durationLexer))

var durationUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// ParseDuration parses strings such as "7d", "15m" or "30s".
// Anything else is a CONFIG_ERROR.
func ParseDuration(raw string) (time.Duration, error) {
	expr, err := durationParser.ParseString("", strings.TrimSpace(raw))
	if err != nil {
		return 0, common.ConfigErrorf("invalid duration %q: expected <integer><s|m|h|d>", raw)
	}
	amount, err := strconv.ParseInt(expr.Amount, 10, 64)
	if err != nil || amount <= 0 {
		return 0, common.ConfigErrorf("invalid duration %q: amount must be a positive integer", raw)
	}
	unit := durationUnits[expr.Unit]
	if amount > math.MaxInt64/int64(unit) {
		return 0, common.ConfigErrorf("invalid duration %q: out of range", raw)
	}
	return time.Duration(amount) * unit, nil
}
