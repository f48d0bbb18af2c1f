package arweave

import (
	"math/big"
	"strings"
)

// WinstonPerAR is the number of winston in one AR.
var WinstonPerAR = big.NewInt(1_000_000_000_000)

// WinstonToAR formats a winston amount as a decimal AR string without
// trailing zeros ("1500000000000" -> "1.5").
func WinstonToAR(winston *big.Int) string {
	if winston == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(winston, WinstonPerAR)
	s := r.FloatString(12)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
