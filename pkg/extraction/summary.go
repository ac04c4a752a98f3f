package extraction

import (
	"fmt"
	"strings"
)

// ClassCount is the number of extractions of one class.
type ClassCount struct {
	Class string
	Count int
}

// Summary is a per-class breakdown of a document's extractions.
type Summary struct {
	Total   int
	Classes []ClassCount // in first-seen order
}

// Summarize counts extractions by class.
func Summarize(extractions []Extraction) Summary {
	s := Summary{Total: len(extractions)}
	index := make(map[string]int)
	for _, e := range extractions {
		i, ok := index[e.Class]
		if !ok {
			i = len(s.Classes)
			index[e.Class] = i
			s.Classes = append(s.Classes, ClassCount{Class: e.Class})
		}
		s.Classes[i].Count++
	}
	return s
}

func (s Summary) String() string {
	if s.Total == 0 {
		return "No extractions found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d extractions:", s.Total)
	for _, c := range s.Classes {
		fmt.Fprintf(&b, "\n  %s: %d", c.Class, c.Count)
	}
	return b.String()
}
