package contact

import (
	"strings"

	apperrors "studentservices-api/internal/common/errors"
	"studentservices-api/internal/common/validation"
	"studentservices-api/internal/models"
)

// CreateInput is the public contact form payload.
type CreateInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	InquiryType string `json:"inquiry_type"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
}

func (in CreateInput) normalize() (*models.ContactInquiry, error) {
	q := &models.ContactInquiry{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       strings.TrimSpace(in.Phone),
		InquiryType: models.InquiryType(strings.TrimSpace(in.InquiryType)),
		Subject:     strings.TrimSpace(in.Subject),
		Message:     strings.TrimSpace(in.Message),
	}
	if q.InquiryType == "" {
		q.InquiryType = models.InquiryGeneral
	}

	var errs []apperrors.FieldError
	add := func(field, msg string) {
		errs = append(errs, apperrors.FieldError{Field: field, Message: msg})
	}
	switch n := len([]rune(q.Name)); {
	case n < 2:
		add("name", "Name must be at least 2 characters long")
	case n > 100:
		add("name", "Name must be at most 100 characters long")
	}
	if !validation.ValidateEmail(q.Email) {
		add("email", "Enter a valid email address")
	}
	if q.Phone != "" && (len(q.Phone) > 20 || !validation.ValidatePhone(q.Phone)) {
		add("phone", "Enter a valid phone number")
	}
	if !q.InquiryType.Valid() {
		add("inquiry_type", "Invalid inquiry type")
	}
	switch n := len([]rune(q.Subject)); {
	case n < 5:
		add("subject", "Subject must be at least 5 characters long")
	case n > 200:
		add("subject", "Subject must be at most 200 characters long")
	}
	if len([]rune(q.Message)) < 10 {
		add("message", "Message must be at least 10 characters long")
	}

	if len(errs) > 0 {
		return nil, apperrors.NewValidationError(errs)
	}
	return q, nil
}
