package checkin

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// FallbackMessage is returned when no catalog variant applies.
const FallbackMessage = "Estou aqui contigo. Vamos com calma."

// SessionInput identifies one session for message selection. Timestamp is Unix nanoseconds and
// is what keeps back-to-back sessions with the same state, intensity and user from repeating.
type SessionInput struct {
	State     string
	Intensity int
	User      string
	Timestamp int64
}

// Key is the pipe-delimited selection key: state|intensity|user|timestamp.
func (in SessionInput) Key() string {
	return in.State + "|" + strconv.Itoa(in.Intensity) + "|" + in.User + "|" + strconv.FormatInt(in.Timestamp, 10)
}

// Select picks a message for state deterministically. Identical inputs always yield the same
// message; a missing state or empty bucket yields FallbackMessage. It never fails.
func Select(c *Catalog, state string, in SessionInput) string {
	if c == nil {
		return FallbackMessage
	}
	msgs, err := c.Resolve(state, in.Intensity)
	if err != nil || len(msgs) == 0 {
		return FallbackMessage
	}
	return strings.TrimSpace(msgs[selectionIndex(in.Key(), len(msgs))])
}

func selectionIndex(key string, n int) int {
	sum := sha256.Sum256([]byte(key))
	h := hex.EncodeToString(sum[:4])
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0
	}
	return int(v % uint64(n))
}
