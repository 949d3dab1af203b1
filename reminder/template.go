package reminder

import (
	"math"
	"strconv"
	"strings"
)

// lateFeeRate is applied to the obligation amount once it is overdue.
const lateFeeRate = 0.10

// Vars are the substitution values for a reminder template.
type Vars struct {
	PayerName   string
	ServiceName string
	RevenueType string
	Amount      float64
}

// Render substitutes the template placeholders. Amounts are whole currency
// units, thousands-grouped, with no currency symbol baked into the number.
func Render(template string, v Vars) string {
	r := strings.NewReplacer(
		"{payer_name}", v.PayerName,
		"{service_name}", v.ServiceName,
		"{revenue_type}", v.RevenueType,
		"{amount}", FormatAmount(v.Amount),
		"{late_fee}", FormatAmount(LateFee(v.Amount)),
	)
	return r.Replace(template)
}

// LateFee is 10% of the amount, rounded to the nearest whole unit.
func LateFee(amount float64) float64 {
	return math.Round(amount * lateFeeRate)
}

// FormatAmount renders a whole-unit amount with thousands grouping,
// e.g. 1234567 -> "1,234,567".
func FormatAmount(amount float64) string {
	s := strconv.FormatInt(int64(math.Round(amount)), 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
