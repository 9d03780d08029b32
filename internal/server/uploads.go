package server

import (
	"errors"
	"io"
	"net/http"

	"naktender/internal/portal"
	"naktender/pkg/types"
)

const multipartMemory = 8 << 20

// limitBody caps a request carrying up to files uploads.
func (s *Service) limitBody(w http.ResponseWriter, r *http.Request, files int) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.UploadMaxBytes*int64(files)+1<<20)
}

func parseMultipart(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return types.NewValidationError("request is too large").Add("file", "exceeds the upload limit")
	}
	return types.NewValidationError("request body is malformed").Add("body", err.Error())
}

// formUpload returns the file sent under field, or nil when the field is
// absent. The caller closes the returned closer.
func formUpload(r *http.Request, field string) (*portal.Upload, io.Closer, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, types.NewValidationError("uploaded file is invalid").Add(field, err.Error())
	}

	return &portal.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}, file, nil
}

type closers []io.Closer

func (c closers) Close() {
	for _, closer := range c {
		_ = closer.Close()
	}
}
