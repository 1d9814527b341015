package httputil

import (
	"errors"
	"io"
	"net/http"

	dErrors "rollcall/pkg/domain-errors"
)

// ImageField is the multipart field carrying face images.
const ImageField = "image"

// ParseMultipart parses a multipart body of at most maxBytes so its fields
// are available through r.FormValue.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeValidation, "image is too large")
		}
		return dErrors.New(dErrors.CodeBadRequest, "expected multipart/form-data body")
	}
	return nil
}

// FormImage returns the bytes of the image part of an already parsed form.
func FormImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile(ImageField)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read image")
	}
	if len(data) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "image is empty")
	}
	return data, nil
}

// ReadImage parses a multipart body and returns the bytes of its image part.
func ReadImage(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if err := ParseMultipart(w, r, maxBytes); err != nil {
		return nil, err
	}
	return FormImage(r)
}
