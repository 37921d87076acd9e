package model

import "time"

// User account
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Roles        []string   `json:"roles"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// HasAnyRole reports whether the user holds one of roles.
func HasAnyRole(have []string, roles ...string) bool {
	for _, h := range have {
		for _, r := range roles {
			if h == r {
				return true
			}
		}
	}
	return false
}

const (
	RoleAdmin                 = "admin"
	RoleMacroPathologist      = "macro_pathologist"
	RoleDiagnosticPathologist = "diagnostic_pathologist"
	RoleUser                  = "user"
)

// Case groups uploaded images
type Case struct {
	ID        int64     `json:"id"`
	CaseName  string    `json:"case_name"`
	ImageIDs  []int64   `json:"image_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// ImageRecord stored upload together with its analysis bundle
type ImageRecord struct {
	ID          int64            `json:"id"`
	CaseID      int64            `json:"case_id"`
	Filename    string           `json:"filename"`
	ContentType string           `json:"content_type"`
	Height      int              `json:"height"`
	Width       int              `json:"width"`
	Data        []byte           `json:"-"`
	UploadedAt  time.Time        `json:"uploaded_at"`
	UploadedBy  string           `json:"uploaded_by"`
	Bundle      CompressedBundle `json:"-"`
}
