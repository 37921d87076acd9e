package model

// UploadResponse upload result
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	CaseID  int64  `json:"case_id,omitempty"`
	ImageID int64  `json:"image_id,omitempty"`
	Records int    `json:"records"`
}

// ErrorResponse error body
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// TokenResponse login result
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// GridResponse grid overlay of one record, possibly edited
type GridResponse struct {
	Success bool        `json:"success"`
	Edited  bool        `json:"edited"`
	Grid    GridOverlay `json:"grid"`
}
