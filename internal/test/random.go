package test

import "math/rand/v2"

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomASCIIString returns a random lowercase alphanumeric string whose
// length lies in [minLen, maxLen]. Order ids in tests are built from it.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	buf := make([]byte, minLen+rand.IntN(maxLen-minLen+1))
	for i := range buf {
		buf[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(buf)
}
