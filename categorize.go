package dcx

// MountStatus classifies a relay entry.
type MountStatus int

const (
	// Empty is a directory with no mount behind it.
	Empty MountStatus = iota
	// Stale is listed in the mount table but cannot be stat-ed.
	Stale
	// Active is a healthy mount with a running container.
	Active
	// Orphaned is a healthy mount with no container.
	Orphaned
)

func (s MountStatus) String() string {
	switch s {
	case Active:
		return "active"
	case Orphaned:
		return "orphaned"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

// Categorize maps what was observed about a relay entry onto a MountStatus.
func Categorize(inTable, accessible, hasContainer bool) MountStatus {
	switch {
	case !inTable:
		return Empty
	case !accessible:
		return Stale
	case hasContainer:
		return Active
	default:
		return Orphaned
	}
}

// WasLabel is the "was:" column of the clean summary.
func WasLabel(s MountStatus) string {
	switch s {
	case Active:
		return "running"
	case Orphaned:
		return "orphaned"
	case Stale:
		return "stale"
	default:
		return "empty dir"
	}
}

// StateLabel is the STATE column of the status table. mounted is
// in-table and accessible.
func StateLabel(mounted, hasContainer bool) string {
	switch Categorize(mounted, mounted, hasContainer) {
	case Active:
		return "running"
	case Orphaned:
		return "orphaned"
	default:
		return "stale mount"
	}
}
