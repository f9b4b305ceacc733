package cram

// Version selects the CRAM format variant, gating BB series support, the
// base-run feature in no-reference mode, and v4's quality reversal. The
// container and slice headers write their 64-bit fields as ltf8 on every
// version, and no series switches to LONG values on any version.
type Version struct {
	Major int
	Minor int
}

var (
	Version2 = Version{2, 1}
	Version3 = Version{3, 0}
	Version4 = Version{4, 0}
)

func (v Version) atLeast(major int) bool { return v.Major >= major }

// Options configures the writer.
type Options struct {
	NoRef            bool
	EmbedRef         bool
	LossyReadNames   bool
	PreserveAuxOrder bool
	PreserveAuxSize  bool
	Binning          Binning

	UseBZ2  bool
	UseLZMA bool
	UseBSC  bool
	UseRANS bool
	UseFQZ  bool

	Level int // 0..9

	IgnoreChecksum bool

	SeqsPerSlice        int
	SlicesPerContainer  int
	BasesPerSlice       int

	Version Version
	Verbose bool
}

// DefaultOptions returns the writer's out-of-the-box configuration.
func DefaultOptions() Options {
	return Options{
		Level:              5,
		SeqsPerSlice:        10000,
		SlicesPerContainer: 1,
		BasesPerSlice:      0,
		Version:            Version3,
	}
}
