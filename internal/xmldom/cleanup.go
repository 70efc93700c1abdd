package xmldom

import (
	"bytes"
	"regexp"
)

var (
	blankLine     = regexp.MustCompile(`^ *\r?$`)
	indentedBang  = regexp.MustCompile(`^ *<!`)
	lineSeparator = []byte("\n")
)

// CleanupForSave rewrites serialized XML the way saved configurations are
// laid out: blank lines are dropped, lines opening with "<!" (comments and
// declarations) move to the first column and get one blank line above them.
func CleanupForSave(b []byte) []byte {
	lines := bytes.Split(b, lineSeparator)
	out := make([][]byte, 0, len(lines)+len(lines)/8)
	for _, line := range lines {
		if blankLine.Match(line) {
			continue
		}
		if indentedBang.Match(line) {
			out = append(out, nil, bytes.TrimLeft(line, " "))
			continue
		}
		out = append(out, line)
	}
	res := bytes.Join(out, lineSeparator)
	if len(b) > 0 && b[len(b)-1] == '\n' {
		res = append(res, '\n')
	}
	return res
}
