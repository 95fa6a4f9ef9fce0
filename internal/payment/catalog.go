package payment

import "strconv"

type Package struct {
	Amount     int64 `json:"amount"`
	PriceCents int64 `json:"price_cents"`
	Popular    bool  `json:"popular"`
}

var Packages = []Package{
	{Amount: 50, PriceCents: 500},
	{Amount: 150, PriceCents: 1200, Popular: true},
	{Amount: 300, PriceCents: 2000},
	{Amount: 500, PriceCents: 3000},
}

const (
	MinCustomAmount      = 10
	MaxCustomAmount      = 100_000
	CustomCentsPerCredit = 10
)

func PackageFor(amount int64) (Package, bool) {
	for _, p := range Packages {
		if p.Amount == amount {
			return p, true
		}
	}
	return Package{}, false
}

// CustomPrice is the price in cents of a custom recharge.
func CustomPrice(amount int64) int64 {
	return amount * CustomCentsPerCredit
}

// FormatPrice renders cents as dollars without trailing zeros: 1200 -> "$12",
// 150 -> "$1.5".
func FormatPrice(cents int64) string {
	return "$" + strconv.FormatFloat(float64(cents)/100, 'f', -1, 64)
}
