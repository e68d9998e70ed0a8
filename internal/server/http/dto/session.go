package dto

// SessionRequest carries the role, optional subject and shared actor key.
type SessionRequest struct {
	Role    string `json:"role"`
	Subject string `json:"subject"`
	Key     string `json:"key"`
}

// SessionResponse is returned after a successful login.
type SessionResponse struct {
	Role    string `json:"role"`
	Subject string `json:"subject"`
	Token   string `json:"token"`
}
