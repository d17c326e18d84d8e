package domain

// StatusKind tags the variant of a Status
type StatusKind int

const (
	StatusNotDownloaded StatusKind = iota
	StatusBundled
	StatusInLibrary
	StatusInstalled
)

func (k StatusKind) String() string {
	switch k {
	case StatusNotDownloaded:
		return "not downloaded"
	case StatusBundled:
		return "bundled"
	case StatusInLibrary:
		return "in library"
	case StatusInstalled:
		return "installed"
	default:
		return "unknown"
	}
}

// Status is the derived, point-in-time classification of a collection entry
type Status struct {
	Kind        StatusKind
	LibraryItem LibraryItem // Set for StatusInLibrary
	LoadoutItem LoadoutItem // Set for StatusInstalled
}

// NotDownloaded returns the NotDownloaded status
func NotDownloaded() Status { return Status{Kind: StatusNotDownloaded} }

// Bundled returns the Bundled status
func Bundled() Status { return Status{Kind: StatusBundled} }

// InLibrary returns an InLibrary status for item
func InLibrary(item LibraryItem) Status {
	return Status{Kind: StatusInLibrary, LibraryItem: item}
}

// Installed returns an Installed status for item
func Installed(item LoadoutItem) Status {
	return Status{Kind: StatusInstalled, LoadoutItem: item}
}

// Equal compares variants; InLibrary and Installed also compare entity identity.
func (s Status) Equal(other Status) bool {
	if s.Kind != other.Kind {
		return false
	}
	switch s.Kind {
	case StatusInLibrary:
		return s.LibraryItem.ID == other.LibraryItem.ID
	case StatusInstalled:
		return s.LoadoutItem.ID == other.LoadoutItem.ID
	default:
		return true
	}
}

// Rank orders statuses by progress. Bundled and InLibrary share a rank.
func (s Status) Rank() int {
	switch s.Kind {
	case StatusBundled, StatusInLibrary:
		return 1
	case StatusInstalled:
		return 2
	default:
		return 0
	}
}

func (s Status) IsNotDownloaded() bool { return s.Kind == StatusNotDownloaded }
func (s Status) IsDownloaded() bool    { return !s.IsNotDownloaded() }
func (s Status) IsBundled() bool       { return s.Kind == StatusBundled }
func (s Status) IsInLibrary() bool     { return s.Kind == StatusInLibrary }
func (s Status) IsInstalled() bool     { return s.Kind == StatusInstalled }

func (s Status) String() string {
	return s.Kind.String()
}
