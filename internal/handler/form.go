package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/media"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/service"
)

// FormView describes a form for the client to render: where to send it,
// the current values, any field errors and, for posts, the groups to
// choose from.
type FormView struct {
	Action string            `json:"action"`
	Method string            `json:"method"`
	IsEdit bool              `json:"isEdit"`
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors,omitempty"`
	Groups []model.Group     `json:"groups,omitempty"`
}

// maxFormBody bounds a form submission: the largest image plus room for
// the text fields.
const maxFormBody = media.MaxImageSize + 1<<20

// submission is a decoded POST body. Image is nil when nothing was
// uploaded; Close releases the multipart temp files.
type submission struct {
	Values map[string]string
	Image  io.Reader
	close  func()
}

func (s *submission) Close() {
	if s.close != nil {
		s.close()
	}
}

// readSubmission decodes a form posted as multipart/form-data,
// application/x-www-form-urlencoded or JSON. Fields other than the ones
// listed in keys are dropped, so a client cannot set anything the form
// does not expose (author, id, created time).
func readSubmission(w http.ResponseWriter, r *http.Request, keys ...string) (*submission, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)

	sub := &submission{Values: make(map[string]string, len(keys))}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		raw := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			return nil, apperror.ValidationFailed("body", "request body is not valid JSON")
		}
		for _, k := range keys {
			if v, ok := raw[k]; ok {
				s, ok := v.(string)
				if !ok {
					return nil, apperror.ValidationFailed(k, k+" must be a string")
				}
				sub.Values[k] = s
			}
		}
		return sub, nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBody); err != nil {
			return nil, bodyError(err)
		}
		sub.close = func() { r.MultipartForm.RemoveAll() }

		file, _, err := r.FormFile("image")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			sub.Close()
			return nil, bodyError(err)
		default:
			sub.Image = file
			sub.close = closeAll(file, r.MultipartForm)
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
	}

	for _, k := range keys {
		sub.Values[k] = r.PostFormValue(k)
	}
	return sub, nil
}

func closeAll(file multipart.File, form *multipart.Form) func() {
	return func() {
		file.Close()
		form.RemoveAll()
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("image", fmt.Sprintf("request body must be %d bytes or smaller", tooLarge.Limit))
	}
	return apperror.ValidationFailed("body", "request body could not be parsed")
}

func postFormFrom(sub *submission) service.PostForm {
	return service.PostForm{Text: sub.Values["text"], Group: sub.Values["group"]}
}

func commentFormFrom(sub *submission) service.CommentForm {
	return service.CommentForm{Text: sub.Values["text"]}
}
