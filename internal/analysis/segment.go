package analysis

import (
	"reqprops/internal/knowledge"
	"reqprops/internal/recorder"
)

// Segment is one logical invocation: the anchor call followed by the calls
// that set its arguments, up to and including the terminal call.
type Segment struct {
	Anchor recorder.CallSite
	Window []recorder.CallSite
}

// Supplied returns the call names seen in the window.
func (s Segment) Supplied() map[string]struct{} {
	names := make(map[string]struct{}, len(s.Window))
	for _, c := range s.Window {
		names[c.Method] = struct{}{}
	}
	return names
}

// Segmenter cuts a call list in evaluation order into segments.
type Segmenter struct {
	kb       *knowledge.Base
	terminal string
}

func NewSegmenter(kb *knowledge.Base, terminal string) Segmenter {
	return Segmenter{kb: kb, terminal: terminal}
}

// Next skips calls the knowledge base does not know, then cuts the next
// segment off the front of calls. The anchor is always consumed, so rest
// is strictly shorter than calls whenever ok is true.
func (s Segmenter) Next(calls []recorder.CallSite) (seg Segment, rest []recorder.CallSite, ok bool) {
	start := 0
	for start < len(calls) && !s.kb.Has(calls[start].Method) {
		start++
	}
	calls = calls[start:]
	if len(calls) == 0 {
		return Segment{}, nil, false
	}

	anchor := calls[0]
	end := 1
	for end < len(calls) {
		name := calls[end].Method
		if name == s.terminal {
			end++
			break
		}
		if name != anchor.Method && s.kb.Has(name) {
			break
		}
		end++
	}

	return Segment{Anchor: anchor, Window: calls[:end]}, calls[end:], true
}

// Segments returns every segment of the list.
func (s Segmenter) Segments(calls []recorder.CallSite) []Segment {
	var out []Segment
	for {
		seg, rest, ok := s.Next(calls)
		if !ok {
			return out
		}
		out = append(out, seg)
		calls = rest
	}
}
