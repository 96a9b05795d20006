package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"university-portal-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const admissionAppID = "0b7f5d2c-9e1a-4c3b-8d6f-1a2b3c4d5e6f"

func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.AdmissionApplication{}, &models.FacultyApplication{}, &models.Account{}))
	return db
}

func seedAdmission(t *testing.T, db *gorm.DB) models.AdmissionApplication {
	t.Helper()
	hash, err := BcryptHasher{}.Hash("Registered#2024")
	require.NoError(t, err)
	app := models.AdmissionApplication{
		ID:           admissionAppID,
		FullName:     "Ada Lovelace",
		Email:        "ada@example.edu",
		Program:      "Mathematics",
		PasswordHash: hash,
		OfferState:   models.OfferState{Status: models.OfferStatusPending},
	}
	require.NoError(t, db.Create(&app).Error)
	return app
}

func TestGormApplicationStoreConditionalUpdate(t *testing.T) {
	db := newSQLiteDB(t)
	seedAdmission(t, db)
	store := NewGormApplicationStore[models.AdmissionApplication](db)
	ctx := context.Background()

	token := "tok-1"
	expiry := testNow.Add(7 * 24 * time.Hour)
	offer := OfferChange{
		Status:            models.OfferStatusOffered,
		ConfirmationToken: &token,
		TokenExpiry:       &expiry,
		Fields:            map[string]interface{}{"offered_program": "Physics", "offer_note": nil},
	}

	ok, err := store.ConditionalUpdate(ctx, admissionAppID, models.OfferStatusOffered, "", offer)
	require.NoError(t, err)
	assert.False(t, ok, "status guard must reject a mismatched prior status")

	ok, err = store.ConditionalUpdate(ctx, admissionAppID, models.OfferStatusPending, "", offer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ConditionalUpdate(ctx, admissionAppID, models.OfferStatusPending, "", offer)
	require.NoError(t, err)
	assert.False(t, ok, "a second pending transition must not apply")

	app, err := store.FindByID(ctx, admissionAppID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusOffered, app.Status)
	require.NotNil(t, app.ConfirmationToken)
	assert.Equal(t, token, *app.ConfirmationToken)
	require.NotNil(t, app.TokenExpiry)
	assert.True(t, app.TokenExpiry.Equal(expiry))
	require.NotNil(t, app.OfferedProgram)
	assert.Equal(t, "Physics", *app.OfferedProgram)
	assert.Nil(t, app.OfferNote)

	rejectedBy := models.RejectedByUser
	decline := OfferChange{Status: models.OfferStatusRejected, RejectedBy: &rejectedBy}

	ok, err = store.ConditionalUpdate(ctx, admissionAppID, models.OfferStatusOffered, "tok-2", decline)
	require.NoError(t, err)
	assert.False(t, ok, "token guard must reject a different token")

	ok, err = store.ConditionalUpdate(ctx, admissionAppID, models.OfferStatusOffered, token, decline)
	require.NoError(t, err)
	assert.True(t, ok)

	app, err = store.FindByID(ctx, admissionAppID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusRejected, app.Status)
	assert.Nil(t, app.ConfirmationToken)
	assert.Nil(t, app.TokenExpiry)
	require.NotNil(t, app.RejectedBy)
	assert.Equal(t, models.RejectedByUser, *app.RejectedBy)
}

func TestGormApplicationStoreFindAndDelete(t *testing.T) {
	db := newSQLiteDB(t)
	seedAdmission(t, db)
	store := NewGormApplicationStore[models.AdmissionApplication](db)
	ctx := context.Background()

	_, err := store.FindByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Model(&models.AdmissionApplication{}).Where("id = ?", admissionAppID).Update("status", string(models.OfferStatusOffered)).Error)
	ok, err := store.DeletePending(ctx, admissionAppID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Model(&models.AdmissionApplication{}).Where("id = ?", admissionAppID).Update("status", string(models.OfferStatusPending)).Error)
	ok, err = store.DeletePending(ctx, admissionAppID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.FindByID(ctx, admissionAppID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGormApplicationStoreGuardsConfirmWithToken(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true, Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE .faculty_applications. SET .*WHERE .*id = \? AND status = \?.*confirmation_token = \?`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `faculty_applications` SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewGormApplicationStore[models.FacultyApplication](db)
	ok, err := store.ConditionalUpdate(context.Background(), facultyAppID, models.OfferStatusOffered, "tok", OfferChange{Status: models.OfferStatusApproved})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ConditionalUpdate(context.Background(), facultyAppID, models.OfferStatusPending, "", OfferChange{Status: models.OfferStatusRejected})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormAccountStore(t *testing.T) {
	db := newSQLiteDB(t)
	store := NewGormAccountStore(db)
	ctx := context.Background()

	appID := admissionAppID
	first := &models.Account{UserFname: "Ada", Email: "ada@example.edu", Password: "hash-1", RoleID: models.RoleStudent, ApplicationID: &appID}
	require.NoError(t, store.Create(ctx, first))
	assert.NotZero(t, first.UserID)

	err := store.Create(ctx, &models.Account{Email: "ada@example.edu", Password: "hash-2"})
	require.ErrorIs(t, err, ErrDuplicateAccount)

	otherEmail := &models.Account{Email: "other@example.edu", ApplicationID: &appID}
	require.ErrorIs(t, store.Create(ctx, otherEmail), ErrDuplicateAccount)

	found, err := store.FindByApplicationID(ctx, admissionAppID)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, found.UserID)

	_, err = store.FindByEmail(ctx, "nobody@example.edu")
	require.ErrorIs(t, err, ErrAccountNotFound)

	require.NoError(t, store.UpdatePassword(ctx, first.UserID, "hash-3", testNow))
	found, err = store.FindByEmail(ctx, "ada@example.edu")
	require.NoError(t, err)
	assert.Equal(t, "hash-3", found.Password)
}

func newAdmissionWorkflow(t *testing.T, db *gorm.DB, notifier Notifier) *AdmissionWorkflow {
	t.Helper()
	clock := newTestClock()
	return NewAdmissionWorkflow(false, OfferWorkflowDeps[models.AdmissionApplication]{
		Store:       NewGormApplicationStore[models.AdmissionApplication](db),
		Provisioner: NewAccountProvisioner(NewGormAccountStore(db), NewSecurePasswordGenerator(), BcryptHasher{}),
		Notifier:    notifier,
		Tokens:      NewTokenGenerator(7 * 24 * time.Hour),
		APIBaseURL:  "http://localhost:8080",
		LoginURL:    "http://localhost:3000/login",
		Now:         clock.Now,
	})
}

func TestAdmissionOfferRoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	seeded := seedAdmission(t, db)
	notifier := &recordingNotifier{}
	workflow := newAdmissionWorkflow(t, db, notifier)
	ctx := context.Background()

	out, err := workflow.IssueOffer(ctx, admissionAppID, AdmissionOfferDetails{Program: "Mathematics", StartDate: "2025-09-01", Note: "Scholarship eligible"})
	require.NoError(t, err)
	require.NotNil(t, out.TokenExpiry)
	assert.True(t, out.TokenExpiry.Equal(testNow.Add(7*24*time.Hour)))
	require.Len(t, notifier.offers, 1)
	assert.Equal(t, 7, notifier.offers[0].ExpiryDays)
	assert.Contains(t, notifier.offers[0].AcceptURL, "http://localhost:8080/api/v1/admissions/"+admissionAppID+"/confirm?")

	app, err := workflow.Get(ctx, admissionAppID)
	require.NoError(t, err)
	require.NotNil(t, app.OfferNote)
	assert.Equal(t, "Scholarship eligible", *app.OfferNote)
	token := *app.ConfirmationToken

	confirmed, err := workflow.ConfirmOffer(ctx, admissionAppID, token, ConfirmAccept)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusApproved, confirmed.Status)
	assert.True(t, confirmed.AccountCreated)

	app, err = workflow.Get(ctx, admissionAppID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusApproved, app.Status)
	assert.Nil(t, app.ConfirmationToken)
	assert.Nil(t, app.TokenExpiry)

	var accounts []models.Account
	require.NoError(t, db.Find(&accounts).Error)
	require.Len(t, accounts, 1)
	assert.Equal(t, "ada@example.edu", accounts[0].Email)
	assert.Equal(t, "Ada", accounts[0].UserFname)
	assert.Equal(t, "Lovelace", accounts[0].UserLname)
	assert.Equal(t, models.RoleStudent, accounts[0].RoleID)
	assert.Equal(t, seeded.PasswordHash, accounts[0].Password)
	assert.Empty(t, notifier.credentials, "students sign in with their registration password")

	_, err = workflow.ConfirmOffer(ctx, admissionAppID, token, ConfirmAccept)
	require.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestAdmissionConcurrentAcceptAgainstDatabase(t *testing.T) {
	db := newSQLiteDB(t)
	seedAdmission(t, db)
	workflow := newAdmissionWorkflow(t, db, &recordingNotifier{})
	ctx := context.Background()

	_, err := workflow.IssueOffer(ctx, admissionAppID, AdmissionOfferDetails{Program: "Mathematics", StartDate: "2025-09-01"})
	require.NoError(t, err)
	app, err := workflow.Get(ctx, admissionAppID)
	require.NoError(t, err)
	token := *app.ConfirmationToken

	const callers = 4
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := workflow.ConfirmOffer(ctx, admissionAppID, token, ConfirmAccept)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrAlreadyProcessed), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, db.Model(&models.Account{}).Where("application_id = ?", admissionAppID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAdmissionAcceptWithDeactivatedAccountEmail(t *testing.T) {
	db := newSQLiteDB(t)
	seedAdmission(t, db)
	deleted := testNow.Add(-24 * time.Hour)
	require.NoError(t, db.Create(&models.Account{Email: "ada@example.edu", Password: "old", DeleteAt: &deleted}).Error)
	workflow := newAdmissionWorkflow(t, db, &recordingNotifier{})
	ctx := context.Background()

	_, err := workflow.IssueOffer(ctx, admissionAppID, AdmissionOfferDetails{Program: "Mathematics", StartDate: "2025-09-01"})
	require.NoError(t, err)
	app, err := workflow.Get(ctx, admissionAppID)
	require.NoError(t, err)
	token := *app.ConfirmationToken

	for attempt := 0; attempt < 2; attempt++ {
		_, err = workflow.ConfirmOffer(ctx, admissionAppID, token, ConfirmAccept)
		require.ErrorIs(t, err, ErrAccountProvisioningFailed)
		require.ErrorIs(t, err, ErrAccountConflict)
		assert.Contains(t, err.Error(), "deactivated")
	}

	app, err = workflow.Get(ctx, admissionAppID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferStatusOffered, app.Status)
	assert.Equal(t, token, *app.ConfirmationToken)
}
