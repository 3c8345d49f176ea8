package models

import "time"

type InquiryType string

const (
	InquiryGeneral     InquiryType = "general"
	InquiryService     InquiryType = "service"
	InquiryQuote       InquiryType = "quote"
	InquirySupport     InquiryType = "support"
	InquiryPartnership InquiryType = "partnership"
)

var InquiryTypes = []InquiryType{InquiryGeneral, InquiryService, InquiryQuote, InquirySupport, InquiryPartnership}

type ContactInquiry struct {
	ID            int64       `json:"id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Phone         string      `json:"phone"`
	InquiryType   InquiryType `json:"inquiry_type"`
	Subject       string      `json:"subject"`
	Message       string      `json:"message"`
	IsRead        bool        `json:"is_read"`
	IsResponded   bool        `json:"is_responded"`
	ResponseNotes string      `json:"response_notes"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

var inquiryLabels = map[InquiryType]string{
	InquiryGeneral:     "General Inquiry",
	InquiryService:     "Service Question",
	InquiryQuote:       "Quote Request",
	InquirySupport:     "Support",
	InquiryPartnership: "Partnership",
}

func (t InquiryType) Valid() bool {
	_, ok := inquiryLabels[t]
	return ok
}

func (t InquiryType) Label() string {
	if l, ok := inquiryLabels[t]; ok {
		return l
	}
	return string(t)
}
