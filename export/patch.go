package export

import (
	"fmt"
	"regexp"
)

var modeAssignmentPattern = regexp.MustCompile(`export_mode\s*=\s*"[^"]*"`)

// PatchMode rewrites the first export_mode assignment in document to select
// mode. A document without an assignment is returned unchanged.
func PatchMode(document string, mode Mode) string {
	patched, _ := patchMode(document, mode)
	return patched
}

// PatchModeStrict is PatchMode, but reports KindPatternNotFound when the
// document has no export_mode assignment.
func PatchModeStrict(document string, mode Mode) (string, error) {
	patched, ok := patchMode(document, mode)
	if !ok {
		return document, NewError(KindPatternNotFound, "template has no export_mode assignment", nil)
	}
	return patched, nil
}

// HasModeAssignment reports whether document contains an export_mode assignment.
func HasModeAssignment(document string) bool {
	return modeAssignmentPattern.MatchString(document)
}

func patchMode(document string, mode Mode) (string, bool) {
	loc := modeAssignmentPattern.FindStringIndex(document)
	if loc == nil {
		return document, false
	}
	replacement := fmt.Sprintf(`export_mode = "%s"`, mode)
	return document[:loc[0]] + replacement + document[loc[1]:], true
}
