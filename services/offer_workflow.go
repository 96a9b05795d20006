package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"university-portal-api/models"
)

// ConfirmAction is the applicant's answer to an offer.
type ConfirmAction string

const (
	ConfirmAccept ConfirmAction = "accept"
	ConfirmReject ConfirmAction = "reject"
)

// OfferRecord constrains the workflow to pointer receivers of application models.
type OfferRecord[A any] interface {
	*A
	models.OfferApplication
}

// OfferDomain supplies everything that differs between the admission and
// faculty workflows: offer validation, stored columns, email content and the
// account an accepted application becomes.
type OfferDomain[A any, D any] interface {
	Name() string
	RoutePrefix() string
	ValidateOffer(details D) error
	OfferFields(details D) map[string]interface{}
	OfferDetails(app *A, details D) []OfferDetail
	StoredOffer(app *A) D
	AccountRequest(app *A) AccountRequest
	NotifyOnAdminReject() bool
}

// AccountProvisioning is the subset of AccountProvisioner the workflow needs.
type AccountProvisioning interface {
	Provision(ctx context.Context, req AccountRequest) (*ProvisionedAccount, error)
	ClaimPassword(ctx context.Context, provisioned *ProvisionedAccount) error
	ResetPassword(ctx context.Context, applicationID string) (*ProvisionedAccount, error)
}

// OfferWorkflowDeps wires an OfferWorkflow. Metrics, Logger and Now are optional.
type OfferWorkflowDeps[A any] struct {
	Store       ApplicationStore[A]
	Provisioner AccountProvisioning
	Notifier    Notifier
	Tokens      *TokenGenerator
	APIBaseURL  string
	LoginURL    string
	Metrics     *OfferMetrics
	Logger      *slog.Logger
	Now         func() time.Time
}

// OfferOutcome reports a completed workflow step. Warning is set when the
// state change committed but a follow-up (an email) did not go out.
type OfferOutcome struct {
	ApplicationID  string             `json:"application_id"`
	Status         models.OfferStatus `json:"status"`
	TokenExpiry    *time.Time         `json:"token_expiry,omitempty"`
	AccountID      int                `json:"account_id,omitempty"`
	AccountCreated bool               `json:"account_created,omitempty"`
	Warning        error              `json:"-"`
}

// OfferWorkflow is the offer state machine:
//
//	pending --IssueOffer--> offered --ConfirmOffer(accept)--> approved
//	pending --AdminReject--> rejected
//	offered --ConfirmOffer(reject)--> rejected
//
// Every transition is a conditional update on the expected prior status, so
// concurrent callers cannot both win.
type OfferWorkflow[A any, P OfferRecord[A], D any] struct {
	domain      OfferDomain[A, D]
	store       ApplicationStore[A]
	provisioner AccountProvisioning
	notifier    Notifier
	tokens      *TokenGenerator
	apiBaseURL  string
	loginURL    string
	metrics     *OfferMetrics
	logger      *slog.Logger
	now         func() time.Time
}

func NewOfferWorkflow[A any, P OfferRecord[A], D any](domain OfferDomain[A, D], deps OfferWorkflowDeps[A]) *OfferWorkflow[A, P, D] {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &OfferWorkflow[A, P, D]{
		domain:      domain,
		store:       deps.Store,
		provisioner: deps.Provisioner,
		notifier:    deps.Notifier,
		tokens:      deps.Tokens,
		apiBaseURL:  deps.APIBaseURL,
		loginURL:    deps.LoginURL,
		metrics:     deps.Metrics,
		logger:      logger.With("service", "offer_workflow", "domain", domain.Name()),
		now:         now,
	}
}

// Domain names the workflow instance, e.g. "admission".
func (w *OfferWorkflow[A, P, D]) Domain() string {
	return w.domain.Name()
}

// Get returns the application without changing it.
func (w *OfferWorkflow[A, P, D]) Get(ctx context.Context, id string) (*A, error) {
	return w.store.FindByID(ctx, id)
}

// IssueOffer moves a pending application to offered and emails the applicant
// accept and reject links carrying a fresh confirmation token.
func (w *OfferWorkflow[A, P, D]) IssueOffer(ctx context.Context, id string, details D) (out *OfferOutcome, err error) {
	log := w.logger.With("operation", "issue_offer", "application_id", id)
	defer func() { w.finish(log, "issue_offer", out, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if P(app).Offer().Status != models.OfferStatusPending {
		return nil, ErrAlreadyProcessed
	}
	if err := w.domain.ValidateOffer(details); err != nil {
		return nil, err
	}

	now := w.now()
	token, expiry, err := w.tokens.Issue(now)
	if err != nil {
		return nil, err
	}

	ok, err := w.store.ConditionalUpdate(ctx, id, models.OfferStatusPending, "", OfferChange{
		Status:            models.OfferStatusOffered,
		ConfirmationToken: &token,
		TokenExpiry:       &expiry,
		Fields:            w.domain.OfferFields(details),
	})
	if err != nil {
		return nil, fmt.Errorf("issue offer: %w", err)
	}
	if !ok {
		return nil, w.lostRace(ctx, id, models.OfferStatusPending)
	}

	out = &OfferOutcome{ApplicationID: id, Status: models.OfferStatusOffered, TokenExpiry: &expiry}
	if err := w.sendOffer(ctx, app, w.domain.OfferDetails(app, details), token, expiry, now); err != nil {
		out.Warning = err
	}
	return out, nil
}

// ResendOffer emails the outstanding offer again with its existing token.
func (w *OfferWorkflow[A, P, D]) ResendOffer(ctx context.Context, id string) (out *OfferOutcome, err error) {
	log := w.logger.With("operation", "resend_offer", "application_id", id)
	defer func() { w.finish(log, "resend_offer", out, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	state := P(app).Offer()
	if !state.HasOutstandingOffer() || state.TokenExpiry == nil {
		return nil, ErrAlreadyProcessed
	}
	now := w.now()
	if now.After(*state.TokenExpiry) {
		return nil, ErrTokenExpired
	}

	details := w.domain.OfferDetails(app, w.domain.StoredOffer(app))
	if err := w.sendOffer(ctx, app, details, *state.ConfirmationToken, *state.TokenExpiry, now); err != nil {
		return nil, err
	}
	expiry := *state.TokenExpiry
	return &OfferOutcome{ApplicationID: id, Status: state.Status, TokenExpiry: &expiry}, nil
}

// AdminReject closes a pending application without an offer.
func (w *OfferWorkflow[A, P, D]) AdminReject(ctx context.Context, id string) (out *OfferOutcome, err error) {
	log := w.logger.With("operation", "admin_reject", "application_id", id)
	defer func() { w.finish(log, "admin_reject", out, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if P(app).Offer().Status != models.OfferStatusPending {
		return nil, ErrAlreadyProcessed
	}

	rejectedBy := models.RejectedByAdmin
	ok, err := w.store.ConditionalUpdate(ctx, id, models.OfferStatusPending, "", OfferChange{
		Status:     models.OfferStatusRejected,
		RejectedBy: &rejectedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("admin reject: %w", err)
	}
	if !ok {
		return nil, w.lostRace(ctx, id, models.OfferStatusPending)
	}

	out = &OfferOutcome{ApplicationID: id, Status: models.OfferStatusRejected}
	if w.domain.NotifyOnAdminReject() {
		applicant := P(app).ApplicantSnapshot()
		if err := w.notifier.SendRejection(ctx, RejectionNotice{
			To:     applicant.Email,
			Name:   applicant.FullName,
			Domain: w.domain.Name(),
		}); err != nil {
			out.Warning = fmt.Errorf("%w: rejection email: %v", ErrNotificationFailed, err)
		}
	}
	return out, nil
}

// ConfirmOffer applies the applicant's answer. Checks run in a fixed order:
// existence, status, token, expiry, action. On accept the account is
// provisioned before the token is cleared, so a provisioning failure leaves
// the offer open for a retry.
func (w *OfferWorkflow[A, P, D]) ConfirmOffer(ctx context.Context, id, token string, action ConfirmAction) (out *OfferOutcome, err error) {
	log := w.logger.With("operation", "confirm_offer", "application_id", id, "action", string(action))
	defer func() { w.finish(log, "confirm_offer", out, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.checkConfirmation(app, token, action); err != nil {
		return nil, err
	}

	if action == ConfirmAccept {
		return w.confirmAccept(ctx, app, id, token)
	}
	return w.confirmReject(ctx, id, token)
}

// ConfirmationPreview is what a confirmation link would do, shown before the
// applicant commits to it.
type ConfirmationPreview struct {
	ApplicationID string             `json:"application_id"`
	Action        ConfirmAction      `json:"action"`
	Status        models.OfferStatus `json:"status"`
	TokenExpiry   time.Time          `json:"token_expiry"`
	Details       []OfferDetail      `json:"details"`
}

// PreviewConfirmation runs the ConfirmOffer checks without changing anything.
func (w *OfferWorkflow[A, P, D]) PreviewConfirmation(ctx context.Context, id, token string, action ConfirmAction) (*ConfirmationPreview, error) {
	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := w.checkConfirmation(app, token, action); err != nil {
		return nil, err
	}
	state := P(app).Offer()
	return &ConfirmationPreview{
		ApplicationID: id,
		Action:        action,
		Status:        state.Status,
		TokenExpiry:   *state.TokenExpiry,
		Details:       w.domain.OfferDetails(app, w.domain.StoredOffer(app)),
	}, nil
}

func (w *OfferWorkflow[A, P, D]) checkConfirmation(app *A, token string, action ConfirmAction) error {
	state := P(app).Offer()
	if state.Status != models.OfferStatusOffered {
		return ErrAlreadyProcessed
	}
	if state.ConfirmationToken == nil || !tokensEqual(*state.ConfirmationToken, token) {
		return ErrInvalidToken
	}
	if state.TokenExpiry == nil || w.now().After(*state.TokenExpiry) {
		return ErrTokenExpired
	}
	if action != ConfirmAccept && action != ConfirmReject {
		return ErrInvalidAction
	}
	return nil
}

func (w *OfferWorkflow[A, P, D]) confirmReject(ctx context.Context, id, token string) (*OfferOutcome, error) {
	rejectedBy := models.RejectedByUser
	ok, err := w.store.ConditionalUpdate(ctx, id, models.OfferStatusOffered, token, OfferChange{
		Status:     models.OfferStatusRejected,
		RejectedBy: &rejectedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm reject: %w", err)
	}
	if !ok {
		return nil, w.lostRace(ctx, id, models.OfferStatusOffered)
	}
	return &OfferOutcome{ApplicationID: id, Status: models.OfferStatusRejected}, nil
}

func (w *OfferWorkflow[A, P, D]) confirmAccept(ctx context.Context, app *A, id, token string) (*OfferOutcome, error) {
	provisioned, err := w.provisioner.Provision(ctx, w.domain.AccountRequest(app))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccountProvisioningFailed, err)
	}

	ok, err := w.store.ConditionalUpdate(ctx, id, models.OfferStatusOffered, token, OfferChange{
		Status: models.OfferStatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("confirm accept: %w", err)
	}
	if !ok {
		return nil, w.lostRace(ctx, id, models.OfferStatusOffered)
	}

	out := &OfferOutcome{
		ApplicationID:  id,
		Status:         models.OfferStatusApproved,
		AccountID:      provisioned.Account.UserID,
		AccountCreated: provisioned.Created,
	}
	if provisioned.Password == "" {
		return out, nil
	}

	// A concurrent loser may have created the row with its own password.
	// Nothing is emailed unless the stored hash matches; ReissueCredentials recovers.
	if err := w.provisioner.ClaimPassword(ctx, provisioned); err != nil {
		out.Warning = fmt.Errorf("%w: store generated password: %v", ErrCredentialsNotIssued, err)
		return out, nil
	}

	if err := w.sendCredentials(ctx, app, provisioned); err != nil {
		out.Warning = err
	}
	return out, nil
}

// ReissueCredentials sets a fresh generated password on the account of an
// approved application and emails it. Admins use it when the credentials
// from the accept step never reached the applicant.
func (w *OfferWorkflow[A, P, D]) ReissueCredentials(ctx context.Context, id string) (out *OfferOutcome, err error) {
	log := w.logger.With("operation", "reissue_credentials", "application_id", id)
	defer func() { w.finish(log, "reissue_credentials", out, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if P(app).Offer().Status != models.OfferStatusApproved {
		return nil, ErrNotApproved
	}

	provisioned, err := w.provisioner.ResetPassword(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCredentialsNotIssued, err)
	}
	if err := w.sendCredentials(ctx, app, provisioned); err != nil {
		return nil, err
	}
	return &OfferOutcome{
		ApplicationID: id,
		Status:        models.OfferStatusApproved,
		AccountID:     provisioned.Account.UserID,
	}, nil
}

func (w *OfferWorkflow[A, P, D]) sendCredentials(ctx context.Context, app *A, provisioned *ProvisionedAccount) error {
	applicant := P(app).ApplicantSnapshot()
	if err := w.notifier.SendCredentials(ctx, CredentialsNotice{
		To:       applicant.Email,
		Name:     applicant.FullName,
		Email:    provisioned.Account.Email,
		Password: provisioned.Password,
		LoginURL: w.loginURL,
	}); err != nil {
		return fmt.Errorf("%w: credentials email: %v", ErrNotificationFailed, err)
	}
	return nil
}

// DeletePending removes an application that has not been processed yet.
func (w *OfferWorkflow[A, P, D]) DeletePending(ctx context.Context, id string) (err error) {
	log := w.logger.With("operation", "delete_pending", "application_id", id)
	defer func() { w.finish(log, "delete_pending", nil, err) }()

	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if P(app).Offer().Status != models.OfferStatusPending {
		return ErrAlreadyProcessed
	}
	ok, err := w.store.DeletePending(ctx, id)
	if err != nil {
		return fmt.Errorf("delete pending: %w", err)
	}
	if !ok {
		return w.lostRace(ctx, id, models.OfferStatusPending)
	}
	return nil
}

// lostRace explains why a conditional write matched no row.
func (w *OfferWorkflow[A, P, D]) lostRace(ctx context.Context, id string, expected models.OfferStatus) error {
	app, err := w.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if P(app).Offer().Status != expected {
		return ErrAlreadyProcessed
	}
	if expected == models.OfferStatusOffered {
		return ErrInvalidToken
	}
	return fmt.Errorf("conditional update on %s application %s did not apply", w.domain.Name(), id)
}

func (w *OfferWorkflow[A, P, D]) sendOffer(ctx context.Context, app *A, details []OfferDetail, token string, expiry, now time.Time) error {
	acceptURL, err := w.confirmURL(P(app).ApplicationID(), token, ConfirmAccept)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	rejectURL, err := w.confirmURL(P(app).ApplicationID(), token, ConfirmReject)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	applicant := P(app).ApplicantSnapshot()
	err = w.notifier.SendOffer(ctx, OfferNotice{
		To:         applicant.Email,
		Name:       applicant.FullName,
		Domain:     w.domain.Name(),
		Details:    details,
		AcceptURL:  acceptURL,
		RejectURL:  rejectURL,
		ExpiryDays: expiryDays(expiry.Sub(now)),
	})
	if err != nil {
		return fmt.Errorf("%w: offer email: %v", ErrNotificationFailed, err)
	}
	return nil
}

func (w *OfferWorkflow[A, P, D]) confirmURL(id, token string, action ConfirmAction) (string, error) {
	parsed, err := url.Parse(w.apiBaseURL)
	if err != nil {
		return "", err
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/") + "/api/v1/" + w.domain.RoutePrefix() + "/" + url.PathEscape(id) + "/confirm"
	query := parsed.Query()
	query.Set("token", token)
	query.Set("action", string(action))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (w *OfferWorkflow[A, P, D]) finish(log *slog.Logger, operation string, out *OfferOutcome, err error) {
	if err != nil {
		w.metrics.observe(w.domain.Name(), operation, ErrorKind(err))
		if errors.Is(err, ErrAccountProvisioningFailed) || errors.Is(err, ErrCredentialsNotIssued) || ErrorKind(err) == "unexpected" {
			log.Error("offer workflow step failed", "error_kind", ErrorKind(err), "error", err)
			return
		}
		log.Info("offer workflow step refused", "error_kind", ErrorKind(err))
		return
	}

	w.metrics.observe(w.domain.Name(), operation, "success")
	if out == nil {
		log.Info("offer workflow step completed")
		return
	}
	if out.Warning != nil {
		w.metrics.warn(w.domain.Name(), operation, ErrorKind(out.Warning))
		log.Warn("offer workflow step completed with warning", "status", out.Status, "error_kind", ErrorKind(out.Warning), "error", out.Warning)
		return
	}
	log.Info("offer workflow step completed", "status", out.Status)
}

func tokensEqual(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

func expiryDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// ParseConfirmAction normalises the action query parameter. Unknown values
// are returned as-is so the workflow reports ErrInvalidAction in order.
func ParseConfirmAction(raw string) ConfirmAction {
	return ConfirmAction(strings.ToLower(strings.TrimSpace(raw)))
}
