package services

import (
	"errors"
	"strings"
)

var (
	ErrNotFound                  = errors.New("offer: application not found")
	ErrAlreadyProcessed          = errors.New("offer: application already processed")
	ErrInvalidToken              = errors.New("offer: invalid confirmation token")
	ErrTokenExpired              = errors.New("offer: confirmation token expired")
	ErrInvalidAction             = errors.New("offer: invalid confirmation action")
	ErrMissingRequiredFields     = errors.New("offer: missing required fields")
	ErrAccountProvisioningFailed = errors.New("offer: account provisioning failed")
	ErrNotificationFailed        = errors.New("offer: notification failed")
	ErrCredentialsNotIssued      = errors.New("offer: account credentials not issued")
	ErrNotApproved               = errors.New("offer: application has not been approved")
)

// MissingFieldsError lists the offer detail fields a domain requires but did not receive.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return ErrMissingRequiredFields.Error() + ": " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Is(target error) bool {
	return target == ErrMissingRequiredFields
}

// requireFields returns a *MissingFieldsError naming every blank value, or nil.
func requireFields(values map[string]string, order ...string) error {
	var missing []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingFieldsError{Fields: missing}
}

// ErrorKind maps workflow errors to a stable label for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, ErrMissingRequiredFields):
		return "missing_required_fields"
	case errors.Is(err, ErrNotApproved):
		return "not_approved"
	case errors.Is(err, ErrCredentialsNotIssued):
		return "credentials_not_issued"
	case errors.Is(err, ErrAccountProvisioningFailed):
		return "account_provisioning_failed"
	case errors.Is(err, ErrNotificationFailed):
		return "notification_failed"
	}
	return "unexpected"
}
