package summary

import "bookapi/internal/model"

// Chapters flattens the summary into chapter models in book order.
// Only the TOC fields are filled; identifiers, storage fields and
// timestamps are the caller's concern.
func (s *Summary) Chapters() []model.Chapter {
	var out []model.Chapter
	for pi, p := range s.Parts {
		for i, e := range p.Entries {
			out = append(out, model.Chapter{
				Part:      p.Title,
				PartOrder: pi,
				Position:  i,
				Level:     e.Level,
				Title:     e.Title,
				Path:      e.Path,
				Draft:     e.Draft(),
			})
		}
	}
	return out
}

// FromChapters rebuilds a summary from chapters ordered by part order and
// position. Part grouping follows the order of first appearance, so a
// ListAll result reproduces the original document.
func FromChapters(chapters []model.Chapter) *Summary {
	s := &Summary{}
	idx := make(map[string]int)
	for _, c := range chapters {
		i, ok := idx[c.Part]
		if !ok {
			i = len(s.Parts)
			idx[c.Part] = i
			s.Parts = append(s.Parts, Part{Title: c.Part})
		}
		s.Parts[i].Entries = append(s.Parts[i].Entries, Entry{
			Title: c.Title,
			Path:  c.Path,
			Level: c.Level,
		})
	}
	return s
}
