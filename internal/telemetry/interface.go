package telemetry

// Sample is one telemetry record. Pressures are gauge (Pa), temperatures K.
type Sample struct {
	P1 float64
	P2 float64
	T1 float64
	T2 float64
}

// FrameKind classifies the outcome of one poll.
type FrameKind int

const (
	// FrameIdle means the poll timed out with nothing to yield.
	FrameIdle FrameKind = iota
	// FrameNoise is a diagnostic line without digits; it is discarded.
	FrameNoise
	// FrameSample carries a parsed Sample.
	FrameSample
)

func (k FrameKind) String() string {
	switch k {
	case FrameIdle:
		return "idle"
	case FrameNoise:
		return "noise"
	case FrameSample:
		return "sample"
	default:
		return "unknown"
	}
}

// Frame is the result of a single Reader.Poll.
type Frame struct {
	Kind   FrameKind
	Line   string
	Sample Sample
}
