package domain

import "strings"

// Reference points at an attribute of another task's stored outcome.
// Its textual form is ${taskId.attribute}.
type Reference struct {
	TaskID    string
	Attribute string
}

// ParseReference reports whether s is exactly one placeholder. Placeholders
// embedded in a longer string are not recognised.
func ParseReference(s string) (Reference, bool) {
	if len(s) < 3 || !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return Reference{}, false
	}
	taskID, attribute, _ := strings.Cut(s[2:len(s)-1], ".")
	return Reference{TaskID: taskID, Attribute: attribute}, true
}

// ResultOf returns the placeholder for the result of taskID.
func ResultOf(taskID string) string {
	return Reference{TaskID: taskID, Attribute: "result"}.String()
}

func (r Reference) String() string {
	return "${" + r.TaskID + "." + r.Attribute + "}"
}
