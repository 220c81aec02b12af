package services

import "fmt"

var (
	// ErrNotFound indicates the token, employee, or organization does not resolve
	ErrNotFound = fmt.Errorf("not found")

	// ErrInvalidCredentials indicates a login with an unknown email or wrong password
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// ErrForbidden indicates the caller does not own the requested record
	ErrForbidden = fmt.Errorf("access denied")

	// ErrEmailTaken indicates the email is already registered
	ErrEmailTaken = fmt.Errorf("email already registered")

	// ErrEmployeeCodeTaken indicates the employee code already exists in the organization
	ErrEmployeeCodeTaken = fmt.Errorf("employee ID already exists in this organization")

	// ErrIncorrectPassword indicates a password confirmation did not match
	ErrIncorrectPassword = fmt.Errorf("password is incorrect")

	// ErrInvalidStatus indicates an unknown employee status
	ErrInvalidStatus = fmt.Errorf("invalid employee status")

	// ErrInvalidContactPhone indicates an emergency contact number is not in international form
	ErrInvalidContactPhone = fmt.Errorf("invalid emergency contact phone")

	// ErrTooManyContacts indicates more than MaxEmergencyContacts contacts were given
	ErrTooManyContacts = fmt.Errorf("too many emergency contacts")

	// ErrInvalidPhoneFormat is recorded for contacts whose number cannot be dialed
	ErrInvalidPhoneFormat = fmt.Errorf("invalid phone number format")
)
