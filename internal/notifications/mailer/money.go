package mailer

import (
	"strconv"
	"strings"
)

// FormatZAR renders integer cents as a rand amount, e.g. 125000 -> "R1,250.00".
func FormatZAR(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	frac := cents % 100
	if frac < 10 {
		return sign + "R" + b.String() + ".0" + strconv.FormatInt(frac, 10)
	}
	return sign + "R" + b.String() + "." + strconv.FormatInt(frac, 10)
}
