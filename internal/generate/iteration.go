package generate

import (
	"regexp"
	"strconv"
)

// iterationPattern matches the optimization loop's file naming convention,
// e.g. data/BO_R3.csv carries iteration 3.
var iterationPattern = regexp.MustCompile(`BO_R(\d+)`)

// IterationFromPath resolves the iteration number embedded in a source path.
// Paths outside the BO_R<digits> convention default to iteration 0.
func IterationFromPath(path string) int {
	m := iterationPattern.FindStringSubmatch(path)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
