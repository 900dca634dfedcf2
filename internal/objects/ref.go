package objects

import (
	"strings"
	"time"
)

// RefHeadsPrefix is the well-known namespace for branch refs (spec.md §3).
const RefHeadsPrefix = "refs/heads/"

// Ref is a named pointer to a commit.
type Ref struct {
	Name       string                 `json:"name"`
	CommitHash Hash                   `json:"commitHash"`
	UpdatedAt  time.Time              `json:"updatedAt"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// ResolveRefName normalizes a short branch name ("main") or a
// "heads/<branch>" form to the full "refs/heads/<branch>" form, without
// double-normalizing an already-full name (spec.md §4.2).
func ResolveRefName(name string) string {
	switch {
	case strings.HasPrefix(name, RefHeadsPrefix):
		return name
	case strings.HasPrefix(name, "heads/"):
		return "refs/" + name
	default:
		return RefHeadsPrefix + name
	}
}

// BranchFromRefName extracts the branch name from a full ref name, the
// inverse of ResolveRefName for the common case.
func BranchFromRefName(refName string) string {
	return strings.TrimPrefix(refName, RefHeadsPrefix)
}

// IsBackupRef reports whether a ref's metadata tags it as a migration
// backup (spec.md §4.12 step 1), so migrations and branch listings can
// exclude it from normal traversal.
func IsBackupRef(r Ref) bool {
	if r.Metadata == nil {
		return false
	}
	t, _ := r.Metadata["type"].(string)
	return t == "system:backup"
}
