package portal_test

import (
	"errors"
	"testing"

	"naktender/internal/portal"
	"naktender/internal/portal/portaltest"
	"naktender/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signupForm() types.SignupForm {
	form := accountForm()
	return types.SignupForm{
		CompanyName:        "Kavir Sazeh",
		NationalID:         "14003456789",
		RegistrationNumber: "9021",
		Mobile:             "09351234567",
		Email:              "Office@KavirSazeh.ir",
		Password:           "correct horse battery",
		CEO:                form.CEO,
		Representative:     form.Representative,
	}
}

func signupUploads() []portal.CertificateUpload {
	return []portal.CertificateUpload{
		{Slot: types.CertificateSlot{Type: types.CertificateTypeLegal, Name: types.LegalNameStatute}, File: pdf("statute.pdf")},
		{Slot: types.CertificateSlot{Type: types.CertificateTypeTax}, File: upload("tax.png", pngHeader)},
	}
}

func TestSignup(t *testing.T) {
	f := newFixture(t)

	contractor, err := f.svc.Signup(f.ctx, signupForm(), signupUploads())
	require.NoError(t, err)
	assert.Equal(t, types.CompanyStatusPendingApproval, contractor.CompanyStatus)
	require.NotNil(t, contractor.Email)
	assert.Equal(t, "office@kavirsazeh.ir", *contractor.Email)

	assert.True(t, f.ids.Has("office@kavirsazeh.ir"))

	principal, err := f.svc.ResolveLogin(f.ctx, "sub-office@kavirsazeh.ir")
	require.NoError(t, err)
	assert.Equal(t, contractor.ID, principal.ContractorID)
	assert.Equal(t, "office@kavirsazeh.ir", principal.Username)

	certificates, err := f.store.Certificates().ActiveCertificates(f.ctx, contractor.ID)
	require.NoError(t, err)
	require.Len(t, certificates, 2)
	for _, c := range certificates {
		file, err := f.store.Files().File(f.ctx, c.FileID)
		require.NoError(t, err)
		assert.Equal(t, types.EntityTypeCertificate, file.EntityType)
		assert.Equal(t, c.ID, file.EntityID)
		assert.True(t, f.blobs.Has(file.StorageKey))
	}

	members, err := f.store.Contractors().Members(f.ctx, contractor.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	state, err := f.svc.AccountState(f.ctx, contractor.ID)
	require.NoError(t, err)
	assert.True(t, state.IsEditable)

	require.NoError(t, f.svc.RecordLogin(f.ctx, principal.Subject))
	login, err := f.store.Contractors().LoginBySubject(f.ctx, principal.Subject)
	require.NoError(t, err)
	require.NotNil(t, login.LastLoginAt)
	assert.Equal(t, now, *login.LastLoginAt)
}

func TestSignupCompensatesOnConflict(t *testing.T) {
	f := newFixture(t)

	form := signupForm()
	form.NationalID = f.contractor.NationalID

	_, err := f.svc.Signup(f.ctx, form, signupUploads())
	require.ErrorIs(t, err, types.ErrContractorExists)

	assert.False(t, f.ids.Has("office@kavirsazeh.ir"))
	assert.Empty(t, f.blobs.Keys())
	assert.Len(t, f.blobs.Deleted(), 2)

	_, err = f.svc.ResolveLogin(f.ctx, "sub-office@kavirsazeh.ir")
	require.ErrorIs(t, err, types.ErrUnauthenticated)
}

func TestSignupCompensatesOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn("CreateFile", errors.New("disk full"))

	_, err := f.svc.Signup(f.ctx, signupForm(), signupUploads())
	require.Error(t, err)

	assert.False(t, f.ids.Has("office@kavirsazeh.ir"))
	assert.Empty(t, f.blobs.Keys())
}

func TestSignupRejectsBeforeCreatingIdentity(t *testing.T) {
	f := newFixture(t)

	form := signupForm()
	form.Password = "short"
	_, err := f.svc.Signup(f.ctx, form, nil)
	requireValidationField(t, err, "password")

	uploads := append(signupUploads(), portal.CertificateUpload{
		Slot: types.CertificateSlot{Type: types.CertificateTypeTax},
		File: pdf("tax-again.pdf"),
	})
	_, err = f.svc.Signup(f.ctx, signupForm(), uploads)
	requireValidationField(t, err, "documents[2]")

	_, err = f.svc.Signup(f.ctx, signupForm(), []portal.CertificateUpload{
		{Slot: types.CertificateSlot{Type: types.CertificateTypeTax}, File: upload("tax.exe", "MZ")},
	})
	requireValidationField(t, err, "documents[0]")

	f.ids.SignUpErr = portaltest.ErrIdentityExists
	_, err = f.svc.Signup(f.ctx, signupForm(), signupUploads())
	require.ErrorIs(t, err, portaltest.ErrIdentityExists)

	assert.False(t, f.ids.Has("office@kavirsazeh.ir"))
	assert.Empty(t, f.blobs.Keys())
	assert.Empty(t, f.blobs.Deleted())
}
