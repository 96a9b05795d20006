package services

import (
	"strconv"
	"strings"

	"university-portal-api/models"
)

// FacultyOfferDetails is what an administrator fills in when hiring a candidate.
// Position defaults to the one applied for.
type FacultyOfferDetails struct {
	Department string   `json:"department"`
	Position   string   `json:"position"`
	StartDate  string   `json:"start_date"`
	Salary     *float64 `json:"salary"`
}

// FacultyWorkflow is the offer workflow over faculty applications.
type FacultyWorkflow = OfferWorkflow[models.FacultyApplication, *models.FacultyApplication, FacultyOfferDetails]

type facultyDomain struct {
	notifyOnAdminReject bool
}

// NewFacultyWorkflow builds the faculty instance of the offer workflow.
// Accepted candidates receive a generated password by email.
func NewFacultyWorkflow(notifyOnAdminReject bool, deps OfferWorkflowDeps[models.FacultyApplication]) *FacultyWorkflow {
	return NewOfferWorkflow[models.FacultyApplication, *models.FacultyApplication, FacultyOfferDetails](
		facultyDomain{notifyOnAdminReject: notifyOnAdminReject}, deps)
}

func (facultyDomain) Name() string        { return "faculty" }
func (facultyDomain) RoutePrefix() string { return "faculty" }

func (d facultyDomain) NotifyOnAdminReject() bool { return d.notifyOnAdminReject }

func (facultyDomain) ValidateOffer(details FacultyOfferDetails) error {
	return requireFields(map[string]string{
		"department": details.Department,
		"start_date": details.StartDate,
	}, "department", "start_date")
}

func (facultyDomain) OfferFields(details FacultyOfferDetails) map[string]interface{} {
	fields := map[string]interface{}{
		"offered_department": strings.TrimSpace(details.Department),
		"offered_start_date": strings.TrimSpace(details.StartDate),
		"offered_position":   nullableString(details.Position),
		"offered_salary":     nil,
	}
	if details.Salary != nil {
		fields["offered_salary"] = *details.Salary
	}
	return fields
}

func (facultyDomain) OfferDetails(app *models.FacultyApplication, details FacultyOfferDetails) []OfferDetail {
	position := strings.TrimSpace(details.Position)
	if position == "" {
		position = app.Position
	}
	out := []OfferDetail{
		{Label: "Department", Value: details.Department},
		{Label: "Position", Value: position},
		{Label: "Start date", Value: details.StartDate},
	}
	if details.Salary != nil {
		out = append(out, OfferDetail{Label: "Salary", Value: strconv.FormatFloat(*details.Salary, 'f', 2, 64)})
	}
	return out
}

func (facultyDomain) StoredOffer(app *models.FacultyApplication) FacultyOfferDetails {
	return FacultyOfferDetails{
		Department: derefString(app.OfferedDepartment),
		Position:   derefString(app.OfferedPosition),
		StartDate:  derefString(app.OfferedStartDate),
		Salary:     app.OfferedSalary,
	}
}

func (facultyDomain) AccountRequest(app *models.FacultyApplication) AccountRequest {
	return AccountRequest{
		ApplicationID: app.ID,
		RoleID:        models.RoleFaculty,
		Applicant:     app.ApplicantSnapshot(),
	}
}
