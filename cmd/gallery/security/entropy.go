package security

import "math"

// Entropy returns the Shannon entropy of the buffer in bits per byte.
// High values (> ~7.5) suggest packed or encrypted content. Advisory only:
// legitimately compressed image data also scores high, so callers log rather
// than reject.
func Entropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}

	var frequencies [256]int
	for _, b := range data {
		frequencies[b]++
	}

	var entropy float64
	length := float64(len(data))
	for _, freq := range frequencies {
		if freq > 0 {
			p := float64(freq) / length
			entropy -= p * math.Log2(p)
		}
	}

	return entropy
}
