package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"university-portal-api/models"
	"university-portal-api/utils"
)

// AccountRequest describes the account an accepted application turns into.
type AccountRequest struct {
	ApplicationID string
	RoleID        int
	Applicant     models.Applicant
	// PasswordHash, when set, is copied verbatim. Otherwise a password is generated.
	PasswordHash string
}

// ProvisionedAccount is the result of Provision. Password holds the generated
// plaintext and must only be used to email the accountholder once.
type ProvisionedAccount struct {
	Account  *models.Account
	Created  bool
	Password string

	applicationID string
	passwordHash  string
}

// AccountProvisioner creates the account for an accepted application.
type AccountProvisioner struct {
	accounts  AccountStore
	generator PasswordGenerator
	hasher    PasswordHasher
	now       func() time.Time
}

func NewAccountProvisioner(accounts AccountStore, generator PasswordGenerator, hasher PasswordHasher) *AccountProvisioner {
	return &AccountProvisioner{
		accounts:  accounts,
		generator: generator,
		hasher:    hasher,
		now:       time.Now,
	}
}

// ErrAccountConflict means the applicant's email belongs to an account that
// was not created for this application. An administrator has to resolve it.
var ErrAccountConflict = errors.New("account: email belongs to another account")

// Provision creates the account or, when one already exists for the same
// application, returns it with Created false. Any other email collision is
// reported as ErrAccountConflict.
func (p *AccountProvisioner) Provision(ctx context.Context, req AccountRequest) (*ProvisionedAccount, error) {
	email := strings.TrimSpace(req.Applicant.Email)
	if email == "" {
		return nil, errors.New("applicant email is required")
	}

	result := &ProvisionedAccount{applicationID: req.ApplicationID}
	hash := req.PasswordHash
	if hash == "" {
		plaintext, err := p.generator.Generate()
		if err != nil {
			return nil, err
		}
		hash, err = p.hasher.Hash(plaintext)
		if err != nil {
			return nil, fmt.Errorf("hash generated password: %w", err)
		}
		result.Password = plaintext
	}
	result.passwordHash = hash

	first, last := utils.SplitFullName(req.Applicant.FullName)
	now := p.now()
	applicationID := req.ApplicationID
	account := &models.Account{
		UserFname:     first,
		UserLname:     last,
		Email:         email,
		Password:      hash,
		RoleID:        req.RoleID,
		ApplicationID: &applicationID,
		CreateAt:      &now,
		UpdateAt:      &now,
	}

	err := p.accounts.Create(ctx, account)
	if err == nil {
		result.Account = account
		result.Created = true
		return result, nil
	}
	if !errors.Is(err, ErrDuplicateAccount) {
		return nil, err
	}

	existing, err := p.accounts.FindByApplicationID(ctx, req.ApplicationID)
	if err == nil {
		result.Account = existing
		return result, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}
	return nil, p.conflict(ctx, email)
}

// conflict describes why an email that no account of this application holds
// still collides. The colliding account is never modified.
func (p *AccountProvisioner) conflict(ctx context.Context, email string) error {
	other, err := p.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s is registered to account %d", ErrAccountConflict, email, other.UserID)
	case errors.Is(err, ErrAccountNotFound):
		return fmt.Errorf("%w: %s is held by a deactivated account", ErrAccountConflict, email)
	default:
		return err
	}
}

// ClaimPassword makes a generated password authoritative on an account that
// Provision found rather than created. It is a no-op otherwise.
func (p *AccountProvisioner) ClaimPassword(ctx context.Context, provisioned *ProvisionedAccount) error {
	if provisioned == nil || provisioned.Created || provisioned.Password == "" {
		return nil
	}
	linked := provisioned.Account.ApplicationID
	if linked == nil || *linked != provisioned.applicationID {
		return fmt.Errorf("%w: account %d is not linked to application %s", ErrAccountConflict, provisioned.Account.UserID, provisioned.applicationID)
	}
	return p.accounts.UpdatePassword(ctx, provisioned.Account.UserID, provisioned.passwordHash, p.now())
}

// ResetPassword replaces the password of the account created for an
// application with a freshly generated one.
func (p *AccountProvisioner) ResetPassword(ctx context.Context, applicationID string) (*ProvisionedAccount, error) {
	account, err := p.accounts.FindByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	plaintext, err := p.generator.Generate()
	if err != nil {
		return nil, err
	}
	hash, err := p.hasher.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash generated password: %w", err)
	}
	if err := p.accounts.UpdatePassword(ctx, account.UserID, hash, p.now()); err != nil {
		return nil, err
	}
	account.Password = hash
	return &ProvisionedAccount{
		Account:       account,
		Password:      plaintext,
		applicationID: applicationID,
		passwordHash:  hash,
	}, nil
}
