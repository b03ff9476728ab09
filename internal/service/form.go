package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/yatube/internal/apperror"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// PostForm is the client-supplied part of a post. Author, ID and creation
// time are deliberately absent: they are bound by the server.
type PostForm struct {
	Text  string `json:"text"  validate:"required"`
	Group string `json:"group" validate:"omitempty,max=50,slug"` // group slug, empty for none
}

func (f *PostForm) normalize() {
	f.Text = strings.TrimSpace(f.Text)
	f.Group = strings.TrimSpace(f.Group)
}

type CommentForm struct {
	Text string `json:"text" validate:"required"`
}

func (f *CommentForm) normalize() {
	f.Text = strings.TrimSpace(f.Text)
}

type GroupForm struct {
	Title       string `json:"title"       validate:"required,max=200"`
	Slug        string `json:"slug"        validate:"required,max=50,slug"`
	Description string `json:"description"`
}

func (f *GroupForm) normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Slug = strings.TrimSpace(f.Slug)
	f.Description = strings.TrimSpace(f.Description)
}

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole process.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("text", not "Text") so errors line
	// up with what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("service: registering slug validation: %v", err))
	}
	return v
}

// fieldErrors runs struct validation and returns the failures keyed by
// field name. A nil map means the form is valid.
func fieldErrors(form any) (map[string]string, error) {
	err := validate.Struct(form)
	if err == nil {
		return nil, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validating form: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields, nil
}

// validateForm is fieldErrors folded into a single apperror.
func validateForm(form any) error {
	fields, err := fieldErrors(form)
	if err != nil {
		return err
	}
	if len(fields) > 0 {
		return apperror.InvalidForm(fields)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be %s characters or less", fe.Field(), fe.Param())
	case "slug":
		return fe.Field() + " may contain only letters, digits, hyphens and underscores"
	default:
		return fe.Field() + " is invalid"
	}
}
