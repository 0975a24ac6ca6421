package database

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ValidationError reports malformed input at a write boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateID returns "{prefix}_{epochMillis}_{random6}". IDs sort by creation
// time as long as the prefix is shared.
func GenerateID(prefix string) string {
	return generateIDAt(prefix, time.Now())
}

func generateIDAt(prefix string, now time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return fmt.Sprintf("%s_%d_%s", prefix, now.UnixMilli(), suffix)
}
