package events

import (
	"crypto/md5"
	"strings"

	"github.com/google/uuid"
)

// DeterministicID derives a stable UUID-formatted identifier from the MD5
// digest of the composed parts. The digest is not used for anything
// cryptographic; it only gives re-ingestion runs a collision-resistant ID
// without coordinating with the database for assignment. Identical parts
// always produce the identical ID.
func DeterministicID(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "|")))
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		// md5.Sum is always 16 bytes, FromBytes cannot fail on it
		panic(err)
	}
	return id.String()
}
