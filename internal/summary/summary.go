// Package summary implements the book table-of-contents format: an ordered
// list of markdown links under top-level part headings. Each entry either
// points to a relative markdown file or is a draft placeholder with an empty
// target, e.g. `- [Writing To the Database]()`.
package summary

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
)

// Entry is a single chapter link in the table of contents.
type Entry struct {
	Title string `json:"title"`
	// Path is the relative markdown target. Empty means draft.
	Path string `json:"path"`
	// Level is the nesting depth taken from list indentation. The format
	// is normally flat (level 0).
	Level int `json:"level"`
}

// Draft reports whether the entry is a placeholder without a target.
func (e Entry) Draft() bool {
	return e.Path == ""
}

// Part is a top-level heading and the ordered entries beneath it.
// The conventional parts are "Summary" (user-facing chapters) and
// "Development" (contributor-facing chapters).
type Part struct {
	Title   string  `json:"title"`
	Entries []Entry `json:"entries"`
}

// Summary is the whole table of contents, order-preserving.
type Summary struct {
	Parts []Part `json:"parts"`
}

var entryRe = regexp.MustCompile(`^[-*]\s+\[(.*)\]\((.*)\)$`)

// Parse reads the markdown form of a summary file.
//
// Recognized lines:
//   - `# Title` part headings
//   - `- [Title](path.md)` and `* [Title](path.md)` entries
//   - `- [Title]()` draft entries
//   - blank lines and `---` separators (ignored)
//
// Entries appearing before any heading are collected under an implicit
// untitled part. Any other non-blank line is an error carrying its line
// number.
func Parse(r io.Reader) (*Summary, error) {
	s := &Summary{}
	sc := bufio.NewScanner(r)

	indentUnit := 0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isSeparator(trimmed) {
			continue
		}

		if strings.HasPrefix(trimmed, "#") {
			title := strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if title == "" {
				return nil, fmt.Errorf("line %d: empty part heading", lineNo)
			}
			s.Parts = append(s.Parts, Part{Title: title})
			continue
		}

		m := entryRe.FindStringSubmatch(trimmed)
		if m == nil {
			return nil, fmt.Errorf("line %d: unrecognized summary line %q", lineNo, trimmed)
		}

		level, unit, err := indentLevel(line, indentUnit)
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", lineNo, err)
		}
		indentUnit = unit

		if len(s.Parts) == 0 {
			// Entries before the first heading go into an untitled part.
			s.Parts = append(s.Parts, Part{})
		}
		p := &s.Parts[len(s.Parts)-1]
		p.Entries = append(p.Entries, Entry{
			Title: strings.TrimSpace(m[1]),
			Path:  strings.TrimSpace(m[2]),
			Level: level,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}
	return s, nil
}

// indentLevel converts a line's leading whitespace into a nesting depth.
// Tabs count one level each. The first indented line fixes the space
// indent unit for the rest of the document.
func indentLevel(line string, unit int) (int, int, error) {
	tabs := 0
	spaces := 0
	for _, r := range line {
		switch r {
		case '\t':
			tabs++
		case ' ':
			spaces++
		default:
			goto done
		}
	}
done:
	if tabs > 0 && spaces > 0 {
		return 0, unit, fmt.Errorf("mixed tab and space indentation")
	}
	if tabs > 0 {
		return tabs, unit, nil
	}
	if spaces == 0 {
		return 0, unit, nil
	}
	if unit == 0 {
		unit = spaces
	}
	if spaces%unit != 0 {
		return 0, unit, fmt.Errorf("indentation of %d spaces is not a multiple of %d", spaces, unit)
	}
	return spaces / unit, unit, nil
}

func isSeparator(trimmed string) bool {
	if len(trimmed) < 3 {
		return false
	}
	return strings.Trim(trimmed, "-") == ""
}

// Render writes the canonical textual form of the summary. Parsing the
// output yields the same structure back (whitespace is normalized).
func (s *Summary) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, p := range s.Parts {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		if p.Title != "" {
			fmt.Fprintf(bw, "# %s\n\n", p.Title)
		}
		for _, e := range p.Entries {
			indent := strings.Repeat("  ", e.Level)
			fmt.Fprintf(bw, "%s- [%s](%s)\n", indent, e.Title, e.Path)
		}
	}
	return bw.Flush()
}

// String returns the rendered summary.
func (s *Summary) String() string {
	var b strings.Builder
	_ = s.Render(&b)
	return b.String()
}

// Validate checks the structural rules of the format: non-empty titles,
// unique non-draft targets, and targets that are relative markdown files
// inside the book root. Draft entries are legal.
func (s *Summary) Validate() error {
	seen := make(map[string]string)
	for _, p := range s.Parts {
		for _, e := range p.Entries {
			if strings.TrimSpace(e.Title) == "" {
				return fmt.Errorf("part %q: entry with empty title", p.Title)
			}
			if e.Draft() {
				continue
			}
			if err := ValidatePath(e.Path); err != nil {
				return fmt.Errorf("entry %q: %w", e.Title, err)
			}
			if prev, ok := seen[e.Path]; ok {
				return fmt.Errorf("entries %q and %q link the same target %q", prev, e.Title, e.Path)
			}
			seen[e.Path] = e.Title
		}
	}
	return nil
}

// ValidatePath checks a single link target: relative, inside the book
// root, and pointing at a markdown file.
func ValidatePath(p string) error {
	if strings.HasPrefix(p, "/") {
		return fmt.Errorf("target %q is absolute", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("target %q escapes the book root", p)
	}
	if !strings.HasSuffix(clean, ".md") {
		return fmt.Errorf("target %q is not a markdown file", p)
	}
	return nil
}
