package stm

// Version information for the Pure-Go STM runtime.
const (
	// Version is the current version of the STM runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the STM implementation.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Algorithm describes the commit protocol in use.
	Algorithm string

	// WordBits is the width of a transactional word.
	WordBits int
}

// GetInfo returns information about the STM runtime.
//
// Example:
//
//	info := stm.GetInfo()
//	fmt.Printf("STM %s (%s)\n", info.Version, info.Algorithm)
func GetInfo() Info {
	return Info{
		Version:   Version,
		Algorithm: "value-validating redo log, generation-stamped write set",
		WordBits:  64,
	}
}
