package models

import "time"

// OfferStatus is the workflow state of an admission or faculty application.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusOffered  OfferStatus = "offered"
	OfferStatusApproved OfferStatus = "approved"
	OfferStatusRejected OfferStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed out of the status.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusApproved || s == OfferStatusRejected
}

// RejectedBy records who moved an application to rejected.
type RejectedBy string

const (
	RejectedByAdmin RejectedBy = "admin"
	RejectedByUser  RejectedBy = "user"
)

// OfferState holds the workflow columns shared by every application table.
// ConfirmationToken and TokenExpiry are set only while Status is offered.
type OfferState struct {
	Status            OfferStatus `gorm:"column:status;type:varchar(16);not null;default:pending;index" json:"status"`
	ConfirmationToken *string     `gorm:"column:confirmation_token;size:64" json:"-"`
	TokenExpiry       *time.Time  `gorm:"column:token_expiry" json:"token_expiry,omitempty"`
	RejectedBy        *RejectedBy `gorm:"column:rejected_by;type:varchar(8)" json:"rejected_by,omitempty"`
}

// HasOutstandingOffer reports whether a confirmation token is waiting on the applicant.
func (s OfferState) HasOutstandingOffer() bool {
	return s.Status == OfferStatusOffered && s.ConfirmationToken != nil
}

// Applicant is the identity snapshot captured when the application was submitted.
type Applicant struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// OfferApplication is implemented by every record the offer workflow manages.
type OfferApplication interface {
	ApplicationID() string
	Offer() OfferState
	ApplicantSnapshot() Applicant
}
