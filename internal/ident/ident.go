package ident

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// numericPattern matches backend ids issued as decimal integers.
var numericPattern = regexp.MustCompile(`^\d+$`)

// uuidPattern matches the canonical 8-4-4-4-12 hex form only.
// Braced, URN and undashed variants are not server ids.
var uuidPattern = regexp.MustCompile(
	`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`,
)

// IsServerID reports whether id was issued by the backend: either an
// all-digit string or a canonical UUID. Anything else is a client-side
// placeholder and must never be sent to the server.
func IsServerID(id string) bool {
	if id == "" {
		return false
	}
	return numericPattern.MatchString(id) || uuidPattern.MatchString(id)
}

// NewClientID returns a synthetic id of the form <prefix>-<unix>-<rand>.
// The prefix keeps it from ever matching IsServerID.
func NewClientID(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "notif"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), random)
}
