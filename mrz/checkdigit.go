package mrz

var checkWeights = [3]int{7, 3, 1}

// CheckDigit computes the ICAO 9303 check digit of an MRZ field: each
// character is valued (digits as-is, A-Z as 10-35, filler as 0), weighted
// 7, 3, 1 repeating, and the sum is taken modulo 10.
func CheckDigit(field string) byte {
	sum := 0
	for i := 0; i < len(field); i++ {
		sum += charValue(field[i]) * checkWeights[i%3]
	}
	return byte('0' + sum%10)
}

func charValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	default:
		return 0
	}
}
