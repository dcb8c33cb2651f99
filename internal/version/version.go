package version

import "fmt"

const AppName = "artbox"

type Version struct {
	MajorNumber int64
	MinorNumber int64
	PatchNumber int64
}

// String returns the version as major.minor.patch
func (m *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", m.MajorNumber, m.MinorNumber, m.PatchNumber)
}

var AppVersion = Version{
	MajorNumber: 1,
	MinorNumber: 2,
	PatchNumber: 0,
}
