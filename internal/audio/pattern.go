package audio

// PatternSampleRate is the playback rate for the waveform tables. Slower
// than the capture rate so individual samples are wide enough to see on an
// oscilloscope attached to the output data pin.
const PatternSampleRate = 8000

// Pattern is a fixed 64-entry waveform table pushed to the output channel
// by the playback flow. The tables trace recognizable shapes on a scope.
type Pattern struct {
	Name    string
	Samples []uint16
}

// Bytes renders the table as little-endian 16-bit words, the block layout
// the output channel consumes.
func (p Pattern) Bytes() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, s := range p.Samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// Patterns returns the waveform tables in their playback cycle order.
func Patterns() []Pattern {
	return []Pattern{
		{Name: "square", Samples: squarePattern},
		{Name: "triangle", Samples: trianglePattern},
		{Name: "sawtooth", Samples: sawtoothPattern},
		{Name: "staircase", Samples: staircasePattern},
		{Name: "heart", Samples: heartPattern},
		{Name: "house", Samples: housePattern},
		{Name: "smiley", Samples: smileyPattern},
	}
}

var squarePattern = []uint16{
	0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
	0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
	0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000,
	0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000,
	0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
	0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
	0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000,
	0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000, 0x0000,
}

var trianglePattern = []uint16{
	0x0000, 0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 0x6000, 0x7000,
	0x8000, 0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000,
	0x0000, 0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 0x6000, 0x7000,
	0x8000, 0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000,
	0x0000, 0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 0x6000, 0x7000,
	0x8000, 0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000,
	0x0000, 0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 0x6000, 0x7000,
	0x8000, 0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000,
}

var sawtoothPattern = []uint16{
	0x0000, 0x0800, 0x1000, 0x1800, 0x2000, 0x2800, 0x3000, 0x3800,
	0x4000, 0x4800, 0x5000, 0x5800, 0x6000, 0x6800, 0x7000, 0x7800,
	0x8000, 0x0000, 0x0800, 0x1000, 0x1800, 0x2000, 0x2800, 0x3000,
	0x3800, 0x4000, 0x4800, 0x5000, 0x5800, 0x6000, 0x6800, 0x7000,
	0x7800, 0x8000, 0x0000, 0x0800, 0x1000, 0x1800, 0x2000, 0x2800,
	0x3000, 0x3800, 0x4000, 0x4800, 0x5000, 0x5800, 0x6000, 0x6800,
	0x7000, 0x7800, 0x8000, 0x0000, 0x0800, 0x1000, 0x1800, 0x2000,
	0x2800, 0x3000, 0x3800, 0x4000, 0x4800, 0x5000, 0x5800, 0x6000,
}

var staircasePattern = []uint16{
	0x1000, 0x1000, 0x1000, 0x1000, 0x1000, 0x1000, 0x1000, 0x1000,
	0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000,
	0x3000, 0x3000, 0x3000, 0x3000, 0x3000, 0x3000, 0x3000, 0x3000,
	0x4000, 0x4000, 0x4000, 0x4000, 0x4000, 0x4000, 0x4000, 0x4000,
	0x5000, 0x5000, 0x5000, 0x5000, 0x5000, 0x5000, 0x5000, 0x5000,
	0x6000, 0x6000, 0x6000, 0x6000, 0x6000, 0x6000, 0x6000, 0x6000,
	0x7000, 0x7000, 0x7000, 0x7000, 0x7000, 0x7000, 0x7000, 0x7000,
	0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000, 0x8000,
}

var heartPattern = []uint16{
	0x4000, 0x5000, 0x6000, 0x7000, 0x7800, 0x7000, 0x6000, 0x5000,
	0x4000, 0x3000, 0x2000, 0x1000, 0x0800, 0x1000, 0x2000, 0x3000,
	0x4000, 0x4800, 0x5000, 0x5800, 0x6000, 0x6800, 0x7000, 0x7800,
	0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000, 0x0000,
	0x1000, 0x2000, 0x3000, 0x4000, 0x5000, 0x6000, 0x7000, 0x7800,
	0x7000, 0x6000, 0x5000, 0x4000, 0x3000, 0x2000, 0x1000, 0x0800,
	0x1000, 0x2000, 0x3000, 0x4000, 0x4800, 0x5000, 0x5800, 0x6000,
	0x5800, 0x5000, 0x4800, 0x4000, 0x3800, 0x3000, 0x2800, 0x2000,
}

var housePattern = []uint16{
	0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000,
	0x2000, 0x2800, 0x3000, 0x3800, 0x4000, 0x4800, 0x5000, 0x5800,
	0x6000, 0x6800, 0x7000, 0x7800, 0x8000, 0x7800, 0x7000, 0x6800,
	0x6000, 0x5800, 0x5000, 0x4800, 0x4000, 0x3800, 0x3000, 0x2800,
	0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000,
	0x2000, 0x2000, 0x3000, 0x3000, 0x3000, 0x3000, 0x2000, 0x2000,
	0x2000, 0x4000, 0x4000, 0x4000, 0x4000, 0x4000, 0x4000, 0x2000,
	0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000, 0x2000,
}

var smileyPattern = []uint16{
	0x4000, 0x5000, 0x6000, 0x7000, 0x7800, 0x7000, 0x6000, 0x5000,
	0x4000, 0x3000, 0x2000, 0x1000, 0x0800, 0x1000, 0x2000, 0x3000,
	0x3000, 0x3000, 0x3000, 0x3000, 0x4000, 0x4000, 0x4000, 0x4000,
	0x5000, 0x5000, 0x5000, 0x5000, 0x4000, 0x4000, 0x4000, 0x4000,
	0x3000, 0x3200, 0x3400, 0x3800, 0x4000, 0x4800, 0x5400, 0x5200,
	0x5000, 0x4800, 0x4000, 0x3800, 0x3400, 0x3200, 0x3000, 0x4000,
	0x4000, 0x5000, 0x6000, 0x7000, 0x7800, 0x7000, 0x6000, 0x5000,
	0x4000, 0x3000, 0x2000, 0x1000, 0x0800, 0x1000, 0x2000, 0x3000,
}
