package family

// ParseYear extracts a leading integer from a free-text date the way a lenient
// integer parse would: leading whitespace and an optional sign are accepted,
// digits are consumed until the first non-digit. "1950", " 1950-03-01" and
// "1950 г." all yield 1950; "около 1950" yields false.
func ParseYear(s string) (int, bool) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	start := i
	v := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		if v < 1e8 {
			v = v*10 + int(s[i]-'0')
		}
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// BirthYears returns the parseable birth years of all nodes in order.
func (t Tree) BirthYears() []int {
	var years []int
	for _, n := range t.Nodes {
		if y, ok := ParseYear(n.BirthDate); ok {
			years = append(years, y)
		}
	}
	return years
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
