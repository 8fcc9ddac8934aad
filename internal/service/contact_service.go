package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jeffreylongo/lodge-api/internal/models"
	"github.com/jeffreylongo/lodge-api/pkg/config"
	appErrors "github.com/jeffreylongo/lodge-api/pkg/errors"
)

// ContactService turns a validated contact-form submission into a
// pre-filled mailto URL. No mail is sent server-side; the visitor's own
// mail client does the sending.
type ContactService struct {
	validator *validator.Validate
	config    config.ContactConfig
}

// NewContactService constructs the contact service.
func NewContactService(validate *validator.Validate, cfg config.ContactConfig) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{validator: validate, config: cfg}
}

// BuildMailto validates the form and assembles the mailto URL.
func (s *ContactService) BuildMailto(req models.ContactRequest) (*models.MailtoResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	subject := req.Subject
	if s.config.SubjectPrefix != "" {
		subject = s.config.SubjectPrefix + " " + subject
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Name: %s\n", req.Name)
	fmt.Fprintf(&body, "Email: %s\n", req.Email)
	if req.Phone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", req.Phone)
	}
	body.WriteString("\n")
	body.WriteString(req.Message)

	mailto := fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		s.config.Recipient,
		escapeMailto(subject),
		escapeMailto(body.String()),
	)

	return &models.MailtoResponse{Mailto: mailto}, nil
}

// escapeMailto percent-encodes for the mailto scheme; query escaping with
// `+` for spaces renders literally in most mail clients.
func escapeMailto(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
