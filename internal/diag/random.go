// File: internal/diag/random.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package diag

import "math/rand"

const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultIDLength is used by RandomString for non-positive lengths.
const DefaultIDLength = 16

// RandomString returns n characters drawn uniformly from [0-9A-Za-z].
// Not suitable for secrets.
func RandomString(n int) string {
	if n <= 0 {
		n = DefaultIDLength
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
