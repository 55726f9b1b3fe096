package http1

// formatUint writes the decimal digits of v to the end of scratch and
// returns the written tail. No allocation; the result aliases scratch.
func formatUint(scratch *[uintBufferSize]byte, v uint64) []byte {
	i := len(scratch)
	for {
		i--
		scratch[i] = decimalDigits[v%10]
		v /= 10
		if v == 0 {
			break
		}
	}
	return scratch[i:]
}

// uintLen returns the number of decimal digits of v.
func uintLen(v uint64) int {
	n := 1
	for v >= 10 {
		v /= 10
		n++
	}
	return n
}
