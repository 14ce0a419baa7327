package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "charity/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterProjectRequest is the body of POST /projects.
type RegisterProjectRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
}

// Normalize trims surrounding whitespace.
func (r *RegisterProjectRequest) Normalize() {
	if r == nil {
		return
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *RegisterProjectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(validate.Struct(r))
}

// DonateRequest is the body of POST /projects/{id}/donations.
type DonateRequest struct {
	Amount *uint64 `json:"amount" validate:"required,gt=0"`
}

func (r *DonateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validationError(validate.Struct(r))
}

// validationError turns the first failed rule into a client-facing message.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid request")
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	case "max":
		return dErrors.New(dErrors.CodeValidation, field+" must be at most "+fe.Param()+" characters")
	case "gt":
		return dErrors.New(dErrors.CodeValidation, field+" must be positive")
	default:
		return dErrors.New(dErrors.CodeValidation, field+" is invalid")
	}
}

// RegisterProjectResponse is the body returned by POST /projects.
type RegisterProjectResponse struct {
	ProjectID uint64 `json:"project_id"`
}
