package validator

import "errors"

// ErrInvalidBloodGroup indicates a blood group outside the ABO/Rh set
var ErrInvalidBloodGroup = errors.New("blood group must be one of A+, A-, B+, B-, AB+, AB-, O+, O- or empty")

var bloodGroups = map[string]struct{}{
	"":    {},
	"A+":  {},
	"A-":  {},
	"B+":  {},
	"B-":  {},
	"AB+": {},
	"AB-": {},
	"O+":  {},
	"O-":  {},
}

// ValidateBloodGroup accepts an empty value (unknown) or one of the eight groups
func ValidateBloodGroup(group string) error {
	if _, ok := bloodGroups[group]; !ok {
		return ErrInvalidBloodGroup
	}
	return nil
}
