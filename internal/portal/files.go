package portal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"naktender/pkg/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Upload is a file received from a contractor, not yet stored.
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

// allowedUploads maps accepted extensions to the content type sniffed
// from their first bytes.
var allowedUploads = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// inspectUpload checks size and type of an upload before any I/O and
// returns its extension and content type.
func (s *Service) inspectUpload(field string, up *Upload) (string, string, error) {
	verr := types.NewValidationError("uploaded file is invalid")

	if up == nil || up.Body == nil {
		return "", "", verr.Add(field, "is required")
	}
	if up.Size <= 0 {
		return "", "", verr.Add(field, "is empty")
	}
	if up.Size > s.uploadMaxBytes {
		return "", "", verr.Add(field, fmt.Sprintf("must be at most %d bytes", s.uploadMaxBytes))
	}

	ext := strings.ToLower(filepath.Ext(up.Filename))
	expected, ok := allowedUploads[ext]
	if !ok {
		return "", "", verr.Add(field, "must be a pdf, jpeg or png file")
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(up.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
		return "", "", fmt.Errorf("failed to rewind upload: %w", err)
	}

	sniffed, _, _ := strings.Cut(http.DetectContentType(head[:n]), ";")
	if sniffed != expected {
		return "", "", verr.Add(field, "content does not match the file extension")
	}

	return ext, expected, nil
}

// storeBlob writes an inspected upload under a generated key and returns
// the file row to insert. The row has no owner yet.
func (s *Service) storeBlob(ctx context.Context, contractorID string, up *Upload, ext, contentType string) (*types.File, error) {
	generated := uuid.NewString() + ext

	file := &types.File{
		GeneratedName: generated,
		OriginalName:  filepath.Base(up.Filename),
		MimeType:      contentType,
		SizeBytes:     up.Size,
		StorageKey:    fmt.Sprintf("contractors/%s/%s", contractorID, generated),
		UploadedBy:    contractorID,
	}

	err := s.blobs.Put(ctx, file.StorageKey, contentType, up.Body, up.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	return file, nil
}

// discardBlob removes a blob whose database transaction failed.
func (s *Service) discardBlob(ctx context.Context, file *types.File) {
	if file == nil {
		return
	}

	err := s.blobs.Delete(context.WithoutCancel(ctx), file.StorageKey)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"storage_key":  file.StorageKey,
			"uploaded_by":  file.UploadedBy,
			"generated_as": file.GeneratedName,
		}).Warn("failed to remove blob of rolled back upload")
	}
}

// reclaim removes the blobs of committed tombstones. Failures are left to
// the reclaim sweep.
func (s *Service) reclaim(ctx context.Context, files ...*types.File) {
	ctx = context.WithoutCancel(ctx)

	for _, file := range files {
		if file == nil {
			continue
		}

		entry := s.logger.WithFields(logrus.Fields{
			"file_id":     file.ID,
			"storage_key": file.StorageKey,
		})

		if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
			entry.WithError(err).Warn("failed to remove tombstoned blob")
			continue
		}

		if err := s.store.Files().MarkReclaimed(ctx, file.ID, s.now()); err != nil {
			entry.WithError(err).Warn("failed to mark tombstoned file reclaimed")
		}
	}
}

// ReclaimBlobs removes the blobs of tombstoned files left behind by
// failed removals and returns how many were reclaimed. A blob that fails
// again is stamped so later sweeps reach the tombstones behind it.
func (s *Service) ReclaimBlobs(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = defaultReclaimBatch
	}

	files, err := s.store.Files().UnreclaimedTombstones(ctx, batch)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return reclaimed, err
		}

		if err := s.blobs.Delete(ctx, file.StorageKey); err != nil {
			s.logger.WithError(err).WithField("file_id", file.ID).Warn("reclaim sweep could not remove blob")
			if err := s.store.Files().RecordReclaimAttempt(ctx, file.ID, s.now()); err != nil {
				return reclaimed, err
			}
			continue
		}

		if err := s.store.Files().MarkReclaimed(ctx, file.ID, s.now()); err != nil {
			return reclaimed, err
		}
		reclaimed++
	}

	return reclaimed, nil
}

// tombstone marks a file deleted inside tx and returns it for reclaiming
// once the transaction commits. A file that no longer belongs to owner,
// such as a draft file taken over by a submitted document, is only
// released and stays with its current owner.
func tombstone(ctx context.Context, tx Store, fileID string, owner types.Owner) (*types.File, error) {
	file, err := tx.Files().File(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !ownedBy(file, owner) {
		return nil, nil
	}

	dead := types.Tombstone{PreviousID: owner.EntityID()}
	if err := tx.Files().SetFileOwner(ctx, file.ID, dead); err != nil {
		return nil, err
	}
	file.SetOwner(dead)

	return file, nil
}

func ownedBy(file *types.File, owner types.Owner) bool {
	return file.EntityType == owner.EntityType() && file.EntityID == owner.EntityID()
}
