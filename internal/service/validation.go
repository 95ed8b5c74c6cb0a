// Package service holds the task form validation rules. Validation is pure
// and synchronous: it never touches the network.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BuzzLyutic/taskview/internal/model"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	FieldTitle   = "title"
	FieldDueDate = "due_date"
	FieldTags    = "tags"

	TitleMin = 3
	TitleMax = 120
	TagsMax  = 500
)

const (
	MsgTitleRequired = "Title is required"
	MsgTitleLength   = "Title must be between 3 and 120 characters"
	MsgDueDateFormat = "Due date must be a valid date (YYYY-MM-DD)"
	MsgDueDatePast   = "Due date cannot be in the past"
	MsgTagsLength    = "Tags cannot exceed 500 characters"
)

// ValidationErrors maps a form field to its message. An empty map means the
// draft can be submitted.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

func (v ValidationErrors) Unwrap() error {
	return ErrValidation
}

// checked is the subset of a draft that carries rules.
type checked struct {
	Title   string `json:"title" validate:"required,min=3,max=120"`
	DueDate string `json:"due_date" validate:"omitempty,datetime=2006-01-02,notpast"`
	Tags    string `json:"tags" validate:"max=500"`
}

// FormValidator validates task drafts against the clock it was built with.
type FormValidator struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewFormValidator builds a validator. A nil now uses time.Now.
func NewFormValidator(now func() time.Time) *FormValidator {
	if now == nil {
		now = time.Now
	}
	fv := &FormValidator{validate: validator.New(), now: now}

	fv.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = fv.validate.RegisterValidation("notpast", fv.notPast)
	return fv
}

// Validate returns the current errors of d. It is safe for concurrent use.
func (fv *FormValidator) Validate(d model.TaskFormDraft) ValidationErrors {
	errs := ValidationErrors{}

	in := checked{
		Title:   strings.TrimSpace(d.Title),
		DueDate: strings.TrimSpace(d.DueDate),
		Tags:    d.Tags,
	}
	err := fv.validate.Struct(in)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs[FieldTitle] = err.Error()
		return errs
	}
	for _, fe := range fieldErrs {
		errs[fe.Field()] = message(fe)
	}
	return errs
}

// Today is the current calendar date as midnight UTC.
func (fv *FormValidator) Today() time.Time {
	y, m, d := fv.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (fv *FormValidator) notPast(fl validator.FieldLevel) bool {
	due, ok := model.ParseDate(fl.Field().String())
	if !ok {
		return false
	}
	return !due.Before(fv.Today())
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case FieldTitle:
		if fe.Tag() == "required" {
			return MsgTitleRequired
		}
		return MsgTitleLength
	case FieldDueDate:
		if fe.Tag() == "notpast" {
			return MsgDueDatePast
		}
		return MsgDueDateFormat
	case FieldTags:
		return MsgTagsLength
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
