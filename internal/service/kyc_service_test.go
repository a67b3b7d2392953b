package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

type kycFixture struct {
	store      *memStore
	files      *memStorage
	dispatcher *recordingDispatcher
	svc        *KYCService
	user       *domain.User
}

func newKYCFixture(t *testing.T) *kycFixture {
	t.Helper()
	f := &kycFixture{
		store:      newMemStore(),
		files:      newMemStorage(),
		dispatcher: &recordingDispatcher{},
	}
	f.svc = NewKYCService(KYCDependencies{
		TxManager:        &fakeTx{},
		UserRepo:         memUsers{f.store},
		KYCRepo:          memKYC{f.store},
		VerificationRepo: memVerifications{f.store},
		Storage:          f.files,
		Dispatcher:       f.dispatcher,
	})
	f.user = &domain.User{FirstName: "Grace", Email: "grace@campus.test"}
	require.NoError(t, memUsers{f.store}.Create(context.Background(), f.user))
	return f
}

func (f *kycFixture) submission() KYCSubmitInput {
	return KYCSubmitInput{
		UserID:        f.user.ID,
		ApplicantType: "STUDENT",
		IDNumber:      "2020-00001",
		IDType:        "SCHOOL_ID",
		Front:         upload("front.png", "front"),
		Back:          upload("back.png", "back"),
	}
}

func TestSubmitRequiresBothImages(t *testing.T) {
	f := newKYCFixture(t)
	in := f.submission()
	in.Back = nil

	_, err := f.svc.Submit(context.Background(), in)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	assert.Empty(t, f.files.keys())
}

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	f := newKYCFixture(t)

	profile, err := f.svc.Submit(context.Background(), f.submission())
	require.NoError(t, err)
	require.NotNil(t, profile.KYC)
	assert.Equal(t, domain.KYCStatusPending, profile.KYC.Status)
	assert.True(t, strings.HasPrefix(profile.KYC.FrontKey, "kyc/"))
	assert.True(t, strings.HasSuffix(profile.KYC.BackKey, "-back.png"))
	assert.Len(t, f.files.keys(), 2)
}

func TestSubmitConflictsWhilePendingAndDiscardsFiles(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.submission())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Len(t, f.files.keys(), 2)
}

func TestSubmitUnknownUser(t *testing.T) {
	f := newKYCFixture(t)
	in := f.submission()
	in.UserID = "user-404"

	_, err := f.svc.Submit(context.Background(), in)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestResubmitAfterDeclineReplacesOldSubmission(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, first.KYC.ID, "declined", "admin-1")
	require.NoError(t, err)

	second, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)
	assert.NotEqual(t, first.KYC.ID, second.KYC.ID)
	require.Len(t, f.store.kyc, 1)
	assert.Equal(t, domain.KYCStatusPending, f.store.kyc[0].Status)

	keys := f.files.keys()
	assert.ElementsMatch(t, []string{second.KYC.FrontKey, second.KYC.BackKey}, keys)
}

func TestDecideApproveWritesOneVerification(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()
	submitted, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)

	decided, err := f.svc.Decide(ctx, submitted.KYC.ID, "APPROVED", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, domain.KYCStatusApproved, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	assert.Equal(t, "admin-1", *decided.DecidedBy)

	require.Len(t, f.store.verifications, 1)
	v := f.store.verifications[0]
	assert.Equal(t, domain.VerificationFullyVerified, v.Status)
	assert.Equal(t, f.user.ID, v.UserID)
	assert.Equal(t, submitted.KYC.ID, v.KYCID)

	published := f.dispatcher.ofType(events.EventKYCUpdated)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.KYCUpdatedPayload)
	assert.Equal(t, domain.KYCStatusApproved, payload.Status)
	assert.Equal(t, "grace@campus.test", payload.Email)

	_, err = f.svc.Decide(ctx, submitted.KYC.ID, "DECLINED", "admin-2")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	assert.Len(t, f.store.verifications, 1)

	_, err = f.svc.Submit(ctx, f.submission())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestDecideDeclineWritesNoVerification(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()
	submitted, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)

	_, err = f.svc.Decide(ctx, submitted.KYC.ID, "DECLINED", "admin-1")
	require.NoError(t, err)
	assert.Empty(t, f.store.verifications)
	assert.Len(t, f.dispatcher.ofType(events.EventKYCUpdated), 1)
}

func TestDecideValidation(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, "kyc-1", "PENDING", "admin-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.svc.Decide(ctx, "kyc-404", "APPROVED", "admin-1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Empty(t, f.dispatcher.ofType(events.EventKYCUpdated))
}

func TestListPending(t *testing.T) {
	f := newKYCFixture(t)
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.submission())
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Grace", pending[0].User.FirstName)
}
