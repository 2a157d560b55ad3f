package mixer

import "regexp"

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// BackgroundInput is the reserved name of the filler every mixer carries.
const BackgroundInput = "background"

// ValidName reports whether name matches the identifier grammar shared by
// mixers, inputs and outputs.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ValidateName returns ErrInvalidName when name fails the grammar.
func ValidateName(kind, name string) error {
	if !ValidName(name) {
		return ErrInvalidName(kind, name)
	}
	return nil
}
