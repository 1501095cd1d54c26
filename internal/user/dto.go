package user

// PermissionsResponse lists the effective permission names of one user.
type PermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}
