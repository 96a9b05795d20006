package services

import (
	"strings"

	"university-portal-api/models"
)

// AdmissionOfferDetails is what an administrator fills in when admitting a student.
type AdmissionOfferDetails struct {
	Program   string `json:"program"`
	StartDate string `json:"start_date"`
	Note      string `json:"note"`
}

// AdmissionWorkflow is the offer workflow over admission applications.
type AdmissionWorkflow = OfferWorkflow[models.AdmissionApplication, *models.AdmissionApplication, AdmissionOfferDetails]

type admissionDomain struct {
	notifyOnAdminReject bool
}

// NewAdmissionWorkflow builds the admission instance of the offer workflow.
// Accepted students keep the password they registered with.
func NewAdmissionWorkflow(notifyOnAdminReject bool, deps OfferWorkflowDeps[models.AdmissionApplication]) *AdmissionWorkflow {
	return NewOfferWorkflow[models.AdmissionApplication, *models.AdmissionApplication, AdmissionOfferDetails](
		admissionDomain{notifyOnAdminReject: notifyOnAdminReject}, deps)
}

func (admissionDomain) Name() string        { return "admission" }
func (admissionDomain) RoutePrefix() string { return "admissions" }

func (d admissionDomain) NotifyOnAdminReject() bool { return d.notifyOnAdminReject }

func (admissionDomain) ValidateOffer(details AdmissionOfferDetails) error {
	return requireFields(map[string]string{
		"program":    details.Program,
		"start_date": details.StartDate,
	}, "program", "start_date")
}

func (admissionDomain) OfferFields(details AdmissionOfferDetails) map[string]interface{} {
	return map[string]interface{}{
		"offered_program":    strings.TrimSpace(details.Program),
		"offered_start_date": strings.TrimSpace(details.StartDate),
		"offer_note":         nullableString(details.Note),
	}
}

func (admissionDomain) OfferDetails(app *models.AdmissionApplication, details AdmissionOfferDetails) []OfferDetail {
	program := strings.TrimSpace(details.Program)
	applied := strings.TrimSpace(app.Program)
	out := []OfferDetail{
		{Label: "Program", Value: program},
		{Label: "Start date", Value: strings.TrimSpace(details.StartDate)},
	}
	if applied != "" && program != applied {
		out = append(out, OfferDetail{Label: "Program applied for", Value: applied})
	}
	if note := strings.TrimSpace(details.Note); note != "" {
		out = append(out, OfferDetail{Label: "Note", Value: note})
	}
	return out
}

func (admissionDomain) StoredOffer(app *models.AdmissionApplication) AdmissionOfferDetails {
	return AdmissionOfferDetails{
		Program:   derefString(app.OfferedProgram),
		StartDate: derefString(app.OfferedStartDate),
		Note:      derefString(app.OfferNote),
	}
}

func (admissionDomain) AccountRequest(app *models.AdmissionApplication) AccountRequest {
	return AccountRequest{
		ApplicationID: app.ID,
		RoleID:        models.RoleStudent,
		Applicant:     app.ApplicantSnapshot(),
		PasswordHash:  app.PasswordHash,
	}
}

func nullableString(s string) interface{} {
	if trimmed := strings.TrimSpace(s); trimmed != "" {
		return trimmed
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
