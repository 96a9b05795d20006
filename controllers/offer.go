package controllers

import (
	"errors"
	"io"
	"net/http"

	"university-portal-api/models"
	"university-portal-api/services"
	"university-portal-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const offerNoLongerValidMessage = "This offer is no longer valid"

// OfferController exposes one offer workflow over HTTP. It checks request
// shape only; every business rule lives in the workflow.
type OfferController[A any, P services.OfferRecord[A], D any] struct {
	workflow *services.OfferWorkflow[A, P, D]
}

func NewOfferController[A any, P services.OfferRecord[A], D any](workflow *services.OfferWorkflow[A, P, D]) *OfferController[A, P, D] {
	return &OfferController[A, P, D]{workflow: workflow}
}

// GetApplication returns the application with its workflow state (admin).
func (ctl *OfferController[A, P, D]) GetApplication(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	app, err := ctl.workflow.Get(c.Request.Context(), id)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"application": app,
	})
}

// IssueOffer handles POST /:id/offer (admin).
func (ctl *OfferController[A, P, D]) IssueOffer(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	var details D
	if err := c.ShouldBindJSON(&details); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	out, err := ctl.workflow.IssueOffer(c.Request.Context(), id, details)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	respondOutcome(c, "Offer issued successfully", out)
}

// ResendOffer handles POST /:id/offer/resend (admin).
func (ctl *OfferController[A, P, D]) ResendOffer(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	out, err := ctl.workflow.ResendOffer(c.Request.Context(), id)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	respondOutcome(c, "Offer email sent again", out)
}

// AdminReject handles POST /:id/reject (admin).
func (ctl *OfferController[A, P, D]) AdminReject(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	out, err := ctl.workflow.AdminReject(c.Request.Context(), id)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	respondOutcome(c, "Application rejected", out)
}

// DeletePending handles DELETE /:id (admin).
func (ctl *OfferController[A, P, D]) DeletePending(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	if err := ctl.workflow.DeletePending(c.Request.Context(), id); err != nil {
		respondAdminError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Application deleted successfully"})
}

// PreviewConfirmation handles GET on the emailed confirmation link. It runs
// the same checks as ConfirmOffer but changes nothing, so link scanners that
// prefetch the URL cannot answer the offer. Browsers get a page whose form
// POSTs the answer back.
func (ctl *OfferController[A, P, D]) PreviewConfirmation(c *gin.Context) {
	id, token, action, ok := confirmParams(c)
	if !ok {
		return
	}

	preview, err := ctl.workflow.PreviewConfirmation(c.Request.Context(), id, token, services.ParseConfirmAction(action))
	if err != nil {
		respondConfirmError(c, err)
		return
	}

	page := confirmPage{
		Title:   "Accept your offer",
		Prompt:  "Please confirm that you accept the offer below.",
		Details: preview.Details,
		Expiry:  preview.TokenExpiry.Format("2 January 2006 15:04 MST"),
		Token:   token,
		Action:  string(preview.Action),
		Button:  "Accept offer",
	}
	if preview.Action == services.ConfirmReject {
		page.Title = "Decline your offer"
		page.Prompt = "Please confirm that you decline the offer below. This cannot be undone."
		page.Button = "Decline offer"
	}

	c.Negotiate(http.StatusOK, gin.Negotiate{
		Offered:  []string{gin.MIMEJSON, gin.MIMEHTML},
		HTMLName: ConfirmPageName,
		HTMLData: page,
		JSONData: gin.H{
			"message":        "Submit this action with POST to confirm",
			"application_id": preview.ApplicationID,
			"action":         preview.Action,
			"status":         preview.Status,
			"token_expiry":   preview.TokenExpiry,
			"details":        preview.Details,
		},
	})
}

// ConfirmOffer handles POST on the confirmation link. The token is the only
// authorization, so token failures all read the same to the caller.
func (ctl *OfferController[A, P, D]) ConfirmOffer(c *gin.Context) {
	id, token, action, ok := confirmParams(c)
	if !ok {
		return
	}

	out, err := ctl.workflow.ConfirmOffer(c.Request.Context(), id, token, services.ParseConfirmAction(action))
	if err != nil {
		respondConfirmError(c, err)
		return
	}

	message := "Offer declined"
	if out.Status == models.OfferStatusApproved {
		message = "Offer accepted"
	}
	resp := gin.H{"message": message, "status": out.Status}
	if out.Warning != nil {
		resp["warning"] = "Your response was recorded, but we could not send your account details. Please contact the university office."
	}
	c.JSON(http.StatusOK, resp)
}

// ReissueCredentials handles POST /:id/credentials (admin).
func (ctl *OfferController[A, P, D]) ReissueCredentials(c *gin.Context) {
	id, ok := applicationIDParam(c)
	if !ok {
		return
	}

	out, err := ctl.workflow.ReissueCredentials(c.Request.Context(), id)
	if err != nil {
		respondAdminError(c, err)
		return
	}

	respondOutcome(c, "Account credentials sent", out)
}

// confirmParams reads id, token and action from the query or a posted form.
func confirmParams(c *gin.Context) (id, token, action string, ok bool) {
	id, ok = applicationIDParam(c)
	if !ok {
		return "", "", "", false
	}

	token = utils.SanitizeInput(c.Query("token"))
	action = utils.SanitizeInput(c.Query("action"))
	if token == "" {
		token = utils.SanitizeInput(c.PostForm("token"))
	}
	if action == "" {
		action = utils.SanitizeInput(c.PostForm("action"))
	}
	if token == "" || action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token and action are required"})
		return "", "", "", false
	}
	return id, token, action, true
}

func applicationIDParam(c *gin.Context) (string, bool) {
	raw := utils.SanitizeInput(c.Param("id"))
	parsed, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid application id"})
		return "", false
	}
	return parsed.String(), true
}

func respondOutcome(c *gin.Context, message string, out *services.OfferOutcome) {
	resp := gin.H{
		"message":        message,
		"application_id": out.ApplicationID,
		"status":         out.Status,
	}
	if out.TokenExpiry != nil {
		resp["token_expiry"] = out.TokenExpiry
	}
	if out.Warning != nil {
		resp["warning"] = out.Warning.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func respondAdminError(c *gin.Context, err error) {
	var missing *services.MissingFieldsError
	switch {
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Missing required offer fields", "fields": missing.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
	case errors.Is(err, services.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, gin.H{"error": "Application has already been processed"})
	case errors.Is(err, services.ErrNotApproved):
		c.JSON(http.StatusConflict, gin.H{"error": "Application has not been approved"})
	case errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Offer has expired"})
	case errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid confirmation token"})
	case errors.Is(err, services.ErrNotificationFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send email"})
	case errors.Is(err, services.ErrCredentialsNotIssued):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue account credentials"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process application"})
	}
}

func respondConfirmError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrAlreadyProcessed),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": offerNoLongerValidMessage})
	case errors.Is(err, services.ErrInvalidAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be accept or reject"})
	case errors.Is(err, services.ErrAccountConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "An account already exists for your email address. Please contact the university office."})
	case errors.Is(err, services.ErrAccountProvisioningFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "We could not create your account right now. Please try the link again later."})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process confirmation"})
	}
}

type (
	AdmissionOfferController = OfferController[models.AdmissionApplication, *models.AdmissionApplication, services.AdmissionOfferDetails]
	FacultyOfferController   = OfferController[models.FacultyApplication, *models.FacultyApplication, services.FacultyOfferDetails]
)
