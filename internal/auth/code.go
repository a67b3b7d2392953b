package auth

import (
	"crypto/rand"
	"math/big"
)

// CodeLength is the number of digits in an emailed verification code.
const CodeLength = 6

// GenerateCode returns a zero-padded random numeric code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	ten := big.NewInt(10)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
