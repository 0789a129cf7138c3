package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashVector returns a sha256 digest of the float values in order. Values are
// formatted with full precision so two vectors hash equal only when every
// element is bit-for-bit the same decimal.
func HashVector(vec []float64) [32]byte {
	buffer := GetBytesBuffer()
	defer PutBytesBuffer(buffer)
	defer buffer.Reset()
	for i := range vec {
		buffer.WriteString(strconv.FormatFloat(vec[i], 'g', 17, 64))
		buffer.WriteByte('|')
	}
	return sha256.Sum256(buffer.Bytes())
}

// ShortHash returns the first n hex characters of HashVector.
func ShortHash(vec []float64, n int) string {
	sum := HashVector(vec)
	s := hex.EncodeToString(sum[:])
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}
