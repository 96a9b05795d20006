package models

import "time"

// FacultyApplication is a candidate's request to be hired into a department.
type FacultyApplication struct {
	ID             string `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	FullName       string `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email          string `gorm:"column:email;size:255;not null;index" json:"email"`
	Department     string `gorm:"column:department;size:255" json:"department"`
	Position       string `gorm:"column:position;size:255" json:"position"`
	Qualifications string `gorm:"column:qualifications;type:text" json:"qualifications,omitempty"`

	OfferState `gorm:"embedded"`

	OfferedDepartment *string  `gorm:"column:offered_department;size:255" json:"offered_department,omitempty"`
	OfferedPosition   *string  `gorm:"column:offered_position;size:255" json:"offered_position,omitempty"`
	OfferedStartDate  *string  `gorm:"column:offered_start_date;size:32" json:"offered_start_date,omitempty"`
	OfferedSalary     *float64 `gorm:"column:offered_salary" json:"offered_salary,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;<-:create" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (FacultyApplication) TableName() string {
	return "faculty_applications"
}

func (a *FacultyApplication) ApplicationID() string { return a.ID }

func (a *FacultyApplication) Offer() OfferState { return a.OfferState }

func (a *FacultyApplication) ApplicantSnapshot() Applicant {
	return Applicant{FullName: a.FullName, Email: a.Email}
}
