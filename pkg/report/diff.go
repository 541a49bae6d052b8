package report

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffDumps compares two text dumps line by line. Removed lines are prefixed
// with "- ", added ones with "+ " and common ones with two spaces. The result
// is empty when the dumps are identical.
func DiffDumps(before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	var out strings.Builder

	for _, diff := range diffs {
		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch diff.Type {
			case diffmatchpatch.DiffDelete:
				out.WriteString(removed.Sprint("- " + line))
			case diffmatchpatch.DiffInsert:
				out.WriteString(added.Sprint("+ " + line))
			case diffmatchpatch.DiffEqual:
				out.WriteString("  " + line)
			}

			out.WriteByte('\n')
		}
	}

	return out.String()
}
