package protocol

// Segment is the exchange segment carried in the low byte of an instrument token.
type Segment uint8

const (
	SegmentNSECM   Segment = 1
	SegmentNSEFO   Segment = 2
	SegmentNSECD   Segment = 3
	SegmentBSECM   Segment = 4
	SegmentBSEFO   Segment = 5
	SegmentBSECD   Segment = 6
	SegmentMCXFO   Segment = 7
	SegmentMCXSX   Segment = 8
	SegmentIndices Segment = 9
)

const defaultDivisor = 100.0

// Price divisors that differ from the paise default.
var segmentDivisors = map[Segment]float64{
	SegmentNSECD: 10_000_000.0,
	SegmentBSECD: 10_000.0,
}

// SegmentOf extracts the segment from a full instrument token.
func SegmentOf(token uint32) Segment {
	return Segment(token & 0xff)
}

// Divisor returns the value wire prices of this segment are divided by.
func (s Segment) Divisor() float64 {
	if d, ok := segmentDivisors[s]; ok {
		return d
	}
	return defaultDivisor
}

// Tradable is false only for the indices segment.
func (s Segment) Tradable() bool {
	return s != SegmentIndices
}
