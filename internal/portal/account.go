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

// latestVerification returns the latest verification task of a
// contractor, nil when none exists.
func latestVerification(ctx context.Context, st Store, contractorID string) (*types.Task, error) {
	task, err := st.Tasks().LatestTask(ctx, types.TaskEntityContractor, contractorID)
	if err != nil {
		if errors.Is(err, types.ErrTaskNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return task, nil
}

// lockEditableAccount locks the contractor row and fails with
// types.ErrAccountLocked unless the latest task permits editing.
func lockEditableAccount(ctx context.Context, tx Store, contractorID string) (*types.Contractor, error) {
	contractor, err := tx.Contractors().LockContractor(ctx, contractorID)
	if err != nil {
		return nil, err
	}

	latest, err := latestVerification(ctx, tx, contractorID)
	if err != nil {
		return nil, err
	}

	if err := workflow.CheckAccountEditable(latest); err != nil {
		return nil, err
	}

	return contractor, nil
}

func (s *Service) AccountState(ctx context.Context, contractorID string) (workflow.AccountState, error) {
	latest, err := latestVerification(ctx, s.store, contractorID)
	if err != nil {
		return workflow.AccountState{}, err
	}
	return workflow.AccountStateFor(latest), nil
}

// SubmitAccount persists the verification profile and opens a new
// review task in one transaction. The returned state is re-read after
// commit.
func (s *Service) SubmitAccount(ctx context.Context, p types.Principal, form types.AccountForm) (workflow.AccountState, error) {
	if err := workflow.ValidateStruct("account form is invalid", form); err != nil {
		return workflow.AccountState{}, err
	}

	err := s.store.InTx(ctx, func(tx Store) error {
		contractor, err := lockEditableAccount(ctx, tx, p.ContractorID)
		if err != nil {
			return err
		}

		applyAccountForm(contractor, form)
		if err := tx.Contractors().UpdateContractor(ctx, contractor); err != nil {
			return err
		}

		for _, member := range accountMembers(contractor.ID, form.CEO, form.Representative) {
			if err := tx.Contractors().UpsertMember(ctx, member); err != nil {
				return err
			}
		}

		if p.Subject != "" {
			err = tx.Contractors().UpsertLogin(ctx, &types.ContractorLogin{
				Subject:      p.Subject,
				ContractorID: contractor.ID,
				Username:     p.Username,
			})
			if err != nil {
				return err
			}
		}

		if err := verifyCertificates(ctx, tx, contractor.ID, form.CertificateIDs); err != nil {
			return err
		}

		return tx.Tasks().CreateTask(ctx, &types.Task{
			EntityType: types.TaskEntityContractor,
			EntityID:   contractor.ID,
			Status:     types.TaskStatusPending,
			ActionDate: s.now(),
		})
	})
	if err != nil {
		return workflow.AccountState{}, err
	}

	s.logger.WithField("contractor_id", p.ContractorID).Info("account submitted for review")

	return s.AccountState(ctx, p.ContractorID)
}

func applyAccountForm(c *types.Contractor, form types.AccountForm) {
	c.CompanyName = strings.TrimSpace(form.CompanyName)
	c.NationalID = form.NationalID
	c.RegistrationNumber = strings.TrimSpace(form.RegistrationNumber)
	c.Mobile = form.Mobile
	c.Phone = utils.NilIfBlank(form.Phone)
	c.Email = utils.NilIfBlank(form.Email)
	c.Address = utils.NilIfBlank(form.Address)
	c.PostalCode = utils.NilIfBlank(form.PostalCode)
	c.BankName = utils.NilIfBlank(form.BankName)
	c.AccountNumber = utils.NilIfBlank(form.AccountNumber)
	c.Sheba = utils.NilIfBlank(strings.TrimPrefix(form.Sheba, "IR"))
}

func accountMembers(contractorID string, ceo, representative types.MemberForm) []*types.ContractorMember {
	member := func(role types.MemberRole, f types.MemberForm) *types.ContractorMember {
		return &types.ContractorMember{
			ContractorID: contractorID,
			Role:         role,
			FullName:     strings.TrimSpace(f.FullName),
			NationalID:   f.NationalID,
			Mobile:       f.Mobile,
		}
	}

	return []*types.ContractorMember{
		member(types.MemberRoleCEO, ceo),
		member(types.MemberRoleRepresentative, representative),
	}
}

// verifyCertificates checks that every referenced certificate is an
// active certificate of the contractor.
func verifyCertificates(ctx context.Context, tx Store, contractorID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	active, err := tx.Certificates().ActiveCertificates(ctx, contractorID)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(active))
	for _, c := range active {
		known[c.ID] = true
	}

	verr := types.NewValidationError("account form is invalid")
	for i, id := range ids {
		if !known[id] {
			verr.Add(fmt.Sprintf("certificateIds[%d]", i), "is not an active document of this account")
		}
	}

	return verr.OrNil()
}

// EditAfterRejection reopens a rejected account for editing. The task
// keeps its rejection reason.
func (s *Service) EditAfterRejection(ctx context.Context, contractorID string) (workflow.AccountState, error) {
	latest, err := latestVerification(ctx, s.store, contractorID)
	if err != nil {
		return workflow.AccountState{}, err
	}
	return workflow.EditAfterRejection(latest)
}

// UploadCertificate stores a file in a certificate slot. An active file
// already in the slot is tombstoned and its blob reclaimed.
func (s *Service) UploadCertificate(ctx context.Context, contractorID string, slot types.CertificateSlot, up *Upload) (*types.Certificate, error) {
	slot = slot.Normalize()
	if !slot.Valid() {
		return nil, types.NewValidationError("document slot is invalid").Add("type", "unknown document type or name")
	}

	ext, contentType, err := s.inspectUpload("file", up)
	if err != nil {
		return nil, err
	}

	latest, err := latestVerification(ctx, s.store, contractorID)
	if err != nil {
		return nil, err
	}
	if err := workflow.CheckAccountEditable(latest); err != nil {
		return nil, err
	}

	file, err := s.storeBlob(ctx, contractorID, up, ext, contentType)
	if err != nil {
		return nil, err
	}

	var (
		certificate *types.Certificate
		replaced    *types.File
	)
	err = s.store.InTx(ctx, func(tx Store) error {
		if _, err := lockEditableAccount(ctx, tx, contractorID); err != nil {
			return err
		}

		existing, err := tx.Certificates().ActiveCertificate(ctx, contractorID, slot)
		if err != nil && !errors.Is(err, types.ErrCertificateNotFound) {
			return err
		}

		if existing == nil {
			certificate = &types.Certificate{
				ID:           utils.NanoID(),
				ContractorID: contractorID,
				Type:         slot.Type,
				Name:         slot.Name,
				IsActive:     true,
			}
		} else {
			certificate = existing
		}

		file.SetOwner(types.CertificateOwner{ID: certificate.ID})
		if err := tx.Files().CreateFile(ctx, file); err != nil {
			return err
		}

		if existing == nil {
			certificate.FileID = file.ID
			return tx.Certificates().CreateCertificate(ctx, certificate)
		}

		previous := certificate.FileID
		certificate.FileID = file.ID
		if err := tx.Certificates().UpdateCertificate(ctx, certificate); err != nil {
			return err
		}

		replaced, err = tombstone(ctx, tx, previous, types.CertificateOwner{ID: certificate.ID})
		return err
	})
	if err != nil {
		s.discardBlob(ctx, file)
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"contractor_id":  contractorID,
		"certificate_id": certificate.ID,
		"file_id":        file.ID,
		"replaced":       replaced != nil,
	}).Info("certificate uploaded")

	s.reclaim(ctx, replaced)

	return certificate, nil
}

// DeleteCertificate deactivates the certificate in a slot and tombstones
// its file. Blob removal afterwards is best effort.
func (s *Service) DeleteCertificate(ctx context.Context, contractorID string, slot types.CertificateSlot) error {
	slot = slot.Normalize()
	if !slot.Valid() {
		return types.NewValidationError("document slot is invalid").Add("type", "unknown document type or name")
	}

	var removed *types.File
	err := s.store.InTx(ctx, func(tx Store) error {
		if _, err := lockEditableAccount(ctx, tx, contractorID); err != nil {
			return err
		}

		certificate, err := tx.Certificates().ActiveCertificate(ctx, contractorID, slot)
		if err != nil {
			return err
		}

		certificate.IsActive = false
		if err := tx.Certificates().UpdateCertificate(ctx, certificate); err != nil {
			return err
		}

		removed, err = tombstone(ctx, tx, certificate.FileID, types.CertificateOwner{ID: certificate.ID})
		return err
	})
	if err != nil {
		return err
	}

	s.reclaim(ctx, removed)

	return nil
}
