package secrets

import (
	"strconv"
	"strings"
)

type addedLine struct {
	line int
	text string
}

type fileAdditions struct {
	path  string
	lines []addedLine
}

// lineOf returns the new-file line number of the first added line
// containing secret, or 0.
func (f *fileAdditions) lineOf(secret string) int {
	if secret == "" {
		return 0
	}
	for _, l := range f.lines {
		if strings.Contains(l.text, secret) {
			return l.line
		}
	}
	return 0
}

// parseAddedLines extracts added lines per file from a unified diff, in
// file order. Hunk line counts are honored so content lines that look like
// headers are not misread.
func parseAddedLines(patch string) []*fileAdditions {
	var (
		files    []*fileAdditions
		current  *fileAdditions
		oldLeft  int
		newLeft  int
		nextLine int
	)

	for _, raw := range strings.Split(patch, "\n") {
		if oldLeft > 0 || newLeft > 0 {
			switch {
			case strings.HasPrefix(raw, "+"):
				if current != nil {
					current.lines = append(current.lines, addedLine{line: nextLine, text: raw[1:]})
				}
				nextLine++
				newLeft--
			case strings.HasPrefix(raw, "-"):
				oldLeft--
			case strings.HasPrefix(raw, `\`):
				// "\ No newline at end of file"
			default:
				nextLine++
				oldLeft--
				newLeft--
			}
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+++ "):
			path := strings.TrimPrefix(raw, "+++ ")
			if path == "/dev/null" {
				current = nil
				continue
			}
			current = &fileAdditions{path: strings.TrimPrefix(path, "b/")}
			files = append(files, current)
		case strings.HasPrefix(raw, "@@ "):
			oldLeft, newLeft, nextLine = parseHunkHeader(raw)
		}
	}

	return files
}

// parseHunkHeader parses "@@ -a,b +c,d @@" into old count, new count and
// the first new line number. Omitted counts default to 1.
func parseHunkHeader(header string) (oldCount, newCount, newStart int) {
	fields := strings.Fields(header)
	if len(fields) < 3 {
		return 0, 0, 0
	}
	_, oldCount = parseRange(strings.TrimPrefix(fields[1], "-"))
	newStart, newCount = parseRange(strings.TrimPrefix(fields[2], "+"))
	return oldCount, newCount, newStart
}

func parseRange(r string) (start, count int) {
	startStr, countStr, hasCount := strings.Cut(r, ",")
	start, _ = strconv.Atoi(startStr)
	count = 1
	if hasCount {
		count, _ = strconv.Atoi(countStr)
	}
	return start, count
}
