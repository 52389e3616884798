package speech

import "io"

// Stream yields segments one at a time and returns io.EOF when the audio is
// exhausted. Streams are finite and may only be traversed once.
type Stream interface {
	Next() (Segment, error)
}

type sliceStream struct {
	segments []Segment
	pos      int
}

// NewSliceStream wraps an already-materialized segment list in a Stream.
// Backends that receive their full result in one piece use this to satisfy
// the single-pass contract.
func NewSliceStream(segments []Segment) Stream {
	return &sliceStream{segments: segments}
}

func (s *sliceStream) Next() (Segment, error) {
	if s.pos >= len(s.segments) {
		return Segment{}, io.EOF
	}
	seg := s.segments[s.pos]
	s.pos++
	return seg, nil
}

// Collect drains a stream to completion.
func Collect(s Stream) ([]Segment, error) {
	var out []Segment
	for {
		seg, err := s.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
}
