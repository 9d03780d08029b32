package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"naktender/internal/utils"
	"naktender/internal/workflow"
	"naktender/pkg/types"

	"github.com/sirupsen/logrus"
)

// CertificateUpload is a document attached at sign-up.
type CertificateUpload struct {
	Slot types.CertificateSlot
	File *Upload
}

type inspectedUpload struct {
	slot        types.CertificateSlot
	upload      *Upload
	ext         string
	contentType string
}

// Signup creates the identity and the contractor with its members, login
// and documents. The database writes share one transaction; when it fails
// the stored blobs and the identity are removed again.
func (s *Service) Signup(ctx context.Context, form types.SignupForm, uploads []CertificateUpload) (*types.Contractor, error) {
	if s.identity == nil {
		return nil, errors.New("signup requires an identity provider")
	}

	if err := workflow.ValidateStruct("signup form is invalid", form); err != nil {
		return nil, err
	}

	inspected := make([]inspectedUpload, 0, len(uploads))
	seen := make(map[types.CertificateSlot]bool, len(uploads))
	for i, u := range uploads {
		field := fmt.Sprintf("documents[%d]", i)
		slot := u.Slot.Normalize()
		if !slot.Valid() {
			return nil, types.NewValidationError("signup form is invalid").Add(field, "unknown document type or name")
		}
		if seen[slot] {
			return nil, types.NewValidationError("signup form is invalid").Add(field, "document slot given twice")
		}
		seen[slot] = true

		ext, contentType, err := s.inspectUpload(field, u.File)
		if err != nil {
			return nil, err
		}
		inspected = append(inspected, inspectedUpload{slot: slot, upload: u.File, ext: ext, contentType: contentType})
	}

	username := strings.ToLower(strings.TrimSpace(form.Email))
	subject, err := s.identity.SignUp(ctx, username, form.Password, username)
	if err != nil {
		return nil, err
	}

	contractor := &types.Contractor{
		ID:                 utils.NanoID(),
		CompanyName:        strings.TrimSpace(form.CompanyName),
		NationalID:         form.NationalID,
		RegistrationNumber: strings.TrimSpace(form.RegistrationNumber),
		Mobile:             form.Mobile,
		Email:              utils.StringPtr(username),
		CompanyStatus:      types.CompanyStatusPendingApproval,
	}

	files := make([]*types.File, 0, len(inspected))
	err = func() error {
		for _, u := range inspected {
			file, err := s.storeBlob(ctx, contractor.ID, u.upload, u.ext, u.contentType)
			if err != nil {
				return err
			}
			files = append(files, file)
		}

		return s.store.InTx(ctx, func(tx Store) error {
			if err := tx.Contractors().CreateContractor(ctx, contractor); err != nil {
				return err
			}

			for _, member := range accountMembers(contractor.ID, form.CEO, form.Representative) {
				if err := tx.Contractors().UpsertMember(ctx, member); err != nil {
					return err
				}
			}

			err := tx.Contractors().UpsertLogin(ctx, &types.ContractorLogin{
				Subject:      subject,
				ContractorID: contractor.ID,
				Username:     username,
			})
			if err != nil {
				return err
			}

			for i, u := range inspected {
				certificate := &types.Certificate{
					ID:           utils.NanoID(),
					ContractorID: contractor.ID,
					Type:         u.slot.Type,
					Name:         u.slot.Name,
					IsActive:     true,
				}

				file := files[i]
				file.SetOwner(types.CertificateOwner{ID: certificate.ID})
				if err := tx.Files().CreateFile(ctx, file); err != nil {
					return err
				}

				certificate.FileID = file.ID
				if err := tx.Certificates().CreateCertificate(ctx, certificate); err != nil {
					return err
				}
			}

			return nil
		})
	}()
	if err != nil {
		for _, file := range files {
			s.discardBlob(ctx, file)
		}

		if delErr := s.identity.DeleteUser(context.WithoutCancel(ctx), username); delErr != nil {
			s.logger.WithError(delErr).WithField("username", username).Error("failed to remove identity of failed signup")
		}

		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contractor_id": contractor.ID,
		"documents":     len(files),
	}).Info("contractor signed up")

	return contractor, nil
}

// ResolveLogin maps an authenticated identity onto its contractor.
func (s *Service) ResolveLogin(ctx context.Context, subject string) (*types.Principal, error) {
	login, err := s.store.Contractors().LoginBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, types.ErrLoginNotFound) {
			return nil, types.ErrUnauthenticated
		}
		return nil, err
	}

	return &types.Principal{
		Subject:      login.Subject,
		ContractorID: login.ContractorID,
		Username:     login.Username,
	}, nil
}

// RecordLogin stamps the last login time of a subject.
func (s *Service) RecordLogin(ctx context.Context, subject string) error {
	login, err := s.store.Contractors().LoginBySubject(ctx, subject)
	if err != nil {
		return err
	}

	now := s.now()
	login.LastLoginAt = &now
	return s.store.Contractors().UpsertLogin(ctx, login)
}
