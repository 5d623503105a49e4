package cancellation

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Digest derives the presentable cancellation token from the stored secret and
// a caller-supplied unix timestamp. The secret itself never leaves the backend;
// only this digest does.
func Digest(storedToken string, timestamp int64) string {
	sum := sha256.Sum256([]byte(storedToken + "|" + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(sum[:])
}
