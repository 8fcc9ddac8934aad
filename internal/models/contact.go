package models

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// MailtoResponse carries the pre-filled mailto URL the SPA opens.
type MailtoResponse struct {
	Mailto string `json:"mailto"`
}
