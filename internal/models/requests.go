package models

// RegisterOrganizationRequest is the body of POST /auth/organization/register
type RegisterOrganizationRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is shared by organization and employee login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreateEmployeeRequest is the body of POST /employees
type CreateEmployeeRequest struct {
	EmployeeCode      string             `json:"employeeId" binding:"required"`
	Name              string             `json:"name" binding:"required"`
	Email             string             `json:"email" binding:"required,email"`
	Password          string             `json:"password" binding:"required,min=6"`
	Department        string             `json:"department"`
	Role              string             `json:"role"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
	MedicalInfo       *MedicalInfoUpdate `json:"medicalInfo"`
}

// UpdateEmployeeRequest is the body of PUT /employees/:id. Empty strings and
// nil values leave the stored field unchanged.
type UpdateEmployeeRequest struct {
	Name              string             `json:"name"`
	Department        string             `json:"department"`
	Role              string             `json:"role"`
	Status            EmployeeStatus     `json:"status"`
	ProfilePhoto      string             `json:"profilePhoto"`
	MedicalInfo       *MedicalInfoUpdate `json:"medicalInfo"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
}

// UpdateProfileRequest is the body of PUT /employees/profile/me
type UpdateProfileRequest struct {
	ProfilePhoto      string             `json:"profilePhoto"`
	MedicalInfo       *MedicalInfoUpdate `json:"medicalInfo"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts"`
}

// SettingsUpdate carries optional settings flags
type SettingsUpdate struct {
	SOSCascade         *bool `json:"sosCascade"`
	RequirePhotoUpdate *bool `json:"requirePhotoUpdate"`
}

// UpdateSettingsRequest is the body of PUT /organization/settings
type UpdateSettingsRequest struct {
	Name     string          `json:"name"`
	Settings *SettingsUpdate `json:"settings"`
}

// ChangePasswordRequest is the body of PUT /organization/password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
}

// DeleteAccountRequest is the body of DELETE /organization/account
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// TriggerSOSRequest is the body of POST /emergency/:token/sos. Both parts are optional.
type TriggerSOSRequest struct {
	Location  *Location `json:"location"`
	ScannedBy *Reporter `json:"scannedBy"`
}
