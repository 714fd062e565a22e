package field

// Bank card number limits. Card numbers outside this range are rejected
// before any network matching.
const (
	minCardLength = 12
	maxCardLength = 19
)

// network describes one card network: the IIN prefix ranges it owns and the
// card number lengths it issues.
type network struct {
	name     string
	prefixes [][2]int // inclusive numeric prefix ranges, both bounds same width
	lengths  []int
}

// networks is ordered by specificity: networks whose prefixes are carved out
// of a broader range (Visa Electron inside Visa, Dankort inside Maestro
// space) must come first.
var networks = []network{
	{
		name: "Visa Electron",
		prefixes: [][2]int{
			{4026, 4026}, {417500, 417500}, {4405, 4405}, {4508, 4508},
			{4844, 4844}, {4913, 4913}, {4917, 4917},
		},
		lengths: []int{16},
	},
	{
		name:     "Dankort",
		prefixes: [][2]int{{5019, 5019}},
		lengths:  []int{16},
	},
	{
		name:     "Forbrugsforeningen",
		prefixes: [][2]int{{600722, 600722}},
		lengths:  []int{16},
	},
	{
		name:     "MIR",
		prefixes: [][2]int{{2200, 2204}},
		lengths:  []int{16, 17, 18, 19},
	},
	{
		name:     "American Express",
		prefixes: [][2]int{{34, 34}, {37, 37}},
		lengths:  []int{15},
	},
	{
		name:     "Diners Club",
		prefixes: [][2]int{{300, 305}, {36, 36}, {38, 38}, {39, 39}},
		lengths:  []int{14, 15, 16, 17, 18, 19},
	},
	{
		name:     "JCB",
		prefixes: [][2]int{{3528, 3589}},
		lengths:  []int{16, 17, 18, 19},
	},
	{
		name:     "Discover",
		prefixes: [][2]int{{6011, 6011}, {622126, 622925}, {644, 649}, {65, 65}},
		lengths:  []int{16, 17, 18, 19},
	},
	{
		name:     "UnionPay",
		prefixes: [][2]int{{62, 62}},
		lengths:  []int{16, 17, 18, 19},
	},
	{
		name:     "MasterCard",
		prefixes: [][2]int{{51, 55}, {2221, 2720}},
		lengths:  []int{16},
	},
	{
		name: "Maestro",
		prefixes: [][2]int{
			{5018, 5018}, {5020, 5020}, {5038, 5038}, {5612, 5612},
			{5893, 5893}, {6304, 6304}, {6759, 6759}, {6761, 6763},
		},
		lengths: []int{12, 13, 14, 15, 16, 17, 18, 19},
	},
	{
		name:     "Visa",
		prefixes: [][2]int{{4, 4}},
		lengths:  []int{13, 16, 19},
	},
}

// CardNetwork identifies the card network of a digits-only card number.
// Returns "Unknown" when no network claims the prefix. Length and checksum
// are not checked here; use Validate for full card validation.
func CardNetwork(number string) string {
	for _, n := range networks {
		if n.matches(number) {
			return n.name
		}
	}
	return "Unknown"
}

func (n network) matches(number string) bool {
	for _, r := range n.prefixes {
		lo, hi := r[0], r[1]
		width := digitCount(lo)
		if len(number) < width {
			continue
		}
		prefix := 0
		for _, c := range number[:width] {
			prefix = prefix*10 + int(c-'0')
		}
		if prefix >= lo && prefix <= hi {
			return true
		}
	}
	return false
}

func (n network) lengthValid(length int) bool {
	for _, l := range n.lengths {
		if l == length {
			return true
		}
	}
	return false
}

func digitCount(v int) int {
	count := 1
	for v >= 10 {
		v /= 10
		count++
	}
	return count
}

// luhnValid reports whether a digits-only card number passes the Luhn
// checksum.
func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// allDigits reports whether s is non-empty and contains only ASCII digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// validateCardNumber runs the full card number validation chain and returns
// a user-displayable message, or "" when the number is valid.
func validateCardNumber(number string) string {
	if !allDigits(number) {
		return "Invalid Format"
	}
	if len(number) < minCardLength || len(number) > maxCardLength {
		return "Invalid Length"
	}
	for _, n := range networks {
		if !n.matches(number) {
			continue
		}
		if !n.lengthValid(len(number)) {
			return "Invalid Length"
		}
		if !luhnValid(number) {
			return "Invalid Luhn"
		}
		return ""
	}
	return "Unknown Type"
}
