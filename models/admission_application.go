package models

import "time"

// AdmissionApplication is a student's request to join a program.
type AdmissionApplication struct {
	ID             string `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	FullName       string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email          string `gorm:"column:email;size:255;not null;index" json:"email"`
	Program        string `gorm:"column:program;size:255" json:"program"`
	Qualifications string `gorm:"column:qualifications;type:text" json:"qualifications,omitempty"`
	// PasswordHash is the credential chosen at registration; it becomes the account password on acceptance.
	PasswordHash string `gorm:"column:password_hash;size:255" json:"-"`

	OfferState `gorm:"embedded"`

	OfferedProgram   *string `gorm:"column:offered_program;size:255" json:"offered_program,omitempty"`
	OfferedStartDate *string `gorm:"column:offered_start_date;size:32" json:"offered_start_date,omitempty"`
	OfferNote        *string `gorm:"column:offer_note;type:text" json:"offer_note,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (AdmissionApplication) TableName() string {
	return "admission_applications"
}

func (a *AdmissionApplication) ApplicationID() string { return a.ID }

func (a *AdmissionApplication) Offer() OfferState { return a.OfferState }

func (a *AdmissionApplication) ApplicantSnapshot() Applicant {
	return Applicant{FullName: a.FullName, Email: a.Email}
}
