package dto

// RosterEntry is one teacher or student in a roster import.
type RosterEntry struct {
	Username      string `json:"username" validate:"required,min=2,max=255"`
	Role          string `json:"role" validate:"required,oneof=teacher student"`
	ClassID       string `json:"class_id" validate:"required_if=Role student,max=64"`
	StudentNumber string `json:"student_number" validate:"required_if=Role student,max=64"`
}

// RosterImportRequest carries a batch of roster entries.
type RosterImportRequest struct {
	Users []RosterEntry `json:"users" validate:"required,min=1,dive"`
}

// RosterImportResponse reports how many users were inserted or refreshed.
type RosterImportResponse struct {
	Affected int64 `json:"affected"`
}
