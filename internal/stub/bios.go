package stub

// Revision identifies an embedded BIOS image by the BCD version it
// upgrades the board to.
type Revision struct {
	Major, Minor, Patch byte
	Image               Template
}

// Known BIOS images, keyed by the revision they install. BiosEntry is
// the fixed load/entry address for every BIOS upgrade blob.
const BiosEntry = 0x80000

var (
	Upgrade10204 = Revision{Major: 0x01, Minor: 0x02, Patch: 0x04, Image: NewTemplate(BiosEntry, BiosEntry, make([]byte, 4096))}
	Upgrade30002 = Revision{Major: 0x03, Minor: 0x00, Patch: 0x02, Image: NewTemplate(BiosEntry, BiosEntry, make([]byte, 4096))}
)

func versionWord(major, minor, patch byte) uint32 {
	return uint32(major)<<16 | uint32(minor)<<8 | uint32(patch)
}

// SelectRevision picks the BIOS image appropriate for a board currently
// at (major, minor, patch), or reports that no upgrade is needed.
func SelectRevision(major, minor, patch byte) (rev Revision, upToDate bool) {
	current := versionWord(major, minor, patch)
	latest := versionWord(Upgrade30002.Major, Upgrade30002.Minor, Upgrade30002.Patch)
	if current >= latest {
		return Revision{}, true
	}
	mid := versionWord(Upgrade10204.Major, Upgrade10204.Minor, Upgrade10204.Patch)
	if current < mid {
		return Upgrade10204, false
	}
	return Upgrade30002, false
}
