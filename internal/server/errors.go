package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/resume-optimizer/internal/auth"
	"github.com/jonathan/resume-optimizer/internal/db"
	"github.com/jonathan/resume-optimizer/internal/extract"
	"github.com/jonathan/resume-optimizer/internal/fetch"
	"github.com/jonathan/resume-optimizer/internal/generation"
	"github.com/jonathan/resume-optimizer/internal/llm"
	"github.com/jonathan/resume-optimizer/internal/profile"
	"github.com/jonathan/resume-optimizer/internal/rendering"
	"github.com/jonathan/resume-optimizer/internal/server/middleware"
	"github.com/jonathan/resume-optimizer/internal/storage"
	"github.com/jonathan/resume-optimizer/internal/voice"
)

// Error kinds returned in the "error" field of every failure response.
const (
	KindValidation          = "VALIDATION_ERROR"
	KindInvalidEmail        = "INVALID_EMAIL"
	KindWeakPassword        = "WEAK_PASSWORD"
	KindEmailTaken          = "EMAIL_TAKEN"
	KindInvalidCredentials  = "INVALID_CREDENTIALS"
	KindUnauthorized        = "UNAUTHORIZED"
	KindNotFound            = "NOT_FOUND"
	KindMissingResume       = "MISSING_RESUME"
	KindMissingCoverLetters = "MISSING_COVER_LETTERS"
	KindMissingInput        = "MISSING_INPUT"
	KindInvalidFormat       = "INVALID_FORMAT"
	KindUnsupportedType     = "UNSUPPORTED_TYPE"
	KindFileTooLarge        = "FILE_TOO_LARGE"
	KindUnreadableFile      = "UNREADABLE_FILE"
	KindJobFetchFailed      = "JOB_FETCH_FAILED"
	KindRateLimited         = "rate_limit_exceeded"
	KindProviderUnavailable = "PROVIDER_UNAVAILABLE"
	KindProviderError       = "PROVIDER_ERROR"
	KindStorageError        = "STORAGE_ERROR"
	KindInternal            = "INTERNAL"
)

// Actionable messages for expected states.
const (
	msgUploadResume       = "Please upload a master resume first."
	msgUploadCoverLetters = "Please upload at least one cover letter first."
)

// APIError is a classified failure: the status and safe message sent to the
// client plus the internal cause that is only logged.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Kind + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind + ": " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

func badRequest(kind, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Kind: kind, Message: message}
}

func notFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Kind: KindNotFound, Message: message}
}

// errorBody is the JSON shape of every failure response.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Classify maps any error onto the response taxonomy. Messages never include
// the wrapped cause.
func Classify(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	c := func(status int, kind, message string) *APIError {
		return &APIError{Status: status, Kind: kind, Message: message, Cause: err}
	}

	var (
		validationErr  *auth.ErrValidation
		emailTaken     *auth.ErrEmailTaken
		badCredentials *auth.ErrInvalidCredentials
		userNotFound   *auth.ErrUserNotFound
		fieldErrs      validator.ValidationErrors
		fetchErr       *fetch.Error
		voiceAPIErr    *voice.APICallError
		voiceParseErr  *voice.ParseError
		genAPIErr      *generation.APICallError
		genParseErr    *generation.ParseError
		templateErr    *rendering.TemplateError
		blobErr        *storage.Error
		storageErr     *db.StorageError
	)

	switch {
	case errors.Is(err, auth.ErrInvalidEmail):
		return c(http.StatusBadRequest, KindInvalidEmail, messageOf(validationErr, err, "Please enter a valid email address."))
	case errors.Is(err, auth.ErrWeakPassword):
		return c(http.StatusBadRequest, KindWeakPassword, messageOf(validationErr, err, "Password is too weak."))
	case errors.As(err, &emailTaken):
		return c(http.StatusConflict, KindEmailTaken, "An account with this email already exists.")
	case errors.As(err, &badCredentials):
		return c(http.StatusUnauthorized, KindInvalidCredentials, "Invalid email or password.")
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, middleware.ErrMissingToken):
		return c(http.StatusUnauthorized, KindUnauthorized, "Authentication required.")
	case errors.As(err, &userNotFound):
		return c(http.StatusNotFound, KindNotFound, "User not found.")

	case errors.As(err, &fieldErrs):
		return c(http.StatusBadRequest, KindValidation, fieldMessage(fieldErrs))

	case errors.Is(err, extract.ErrTooLarge):
		return c(http.StatusBadRequest, KindFileTooLarge, "File is too large.")
	case errors.Is(err, extract.ErrUnsupportedType):
		return c(http.StatusBadRequest, KindUnsupportedType, "Only PDF and plain text files are supported.")
	case errors.Is(err, extract.ErrUnreadable):
		return c(http.StatusBadRequest, KindUnreadableFile, "The file could not be read.")

	case errors.Is(err, generation.ErrMissingInput):
		return c(http.StatusBadRequest, KindMissingInput, "A master resume and a job description are required.")
	case errors.Is(err, generation.ErrInvalidFormat):
		return c(http.StatusBadRequest, KindInvalidFormat, "Format must be text or latex_fragment.")
	case errors.Is(err, voice.ErrNoInput):
		return c(http.StatusBadRequest, KindMissingCoverLetters, msgUploadCoverLetters)

	case errors.Is(err, llm.ErrNoCredential):
		return c(http.StatusServiceUnavailable, KindProviderUnavailable, "The AI provider is not configured.")
	case errors.As(err, &voiceAPIErr), errors.As(err, &genAPIErr):
		if errors.Is(err, llm.ErrTimeout) {
			return c(http.StatusBadGateway, KindProviderError, "The AI provider timed out. Please try again.")
		}
		return c(http.StatusBadGateway, KindProviderError, "The AI provider request failed.")
	case errors.As(err, &voiceParseErr), errors.As(err, &genParseErr):
		return c(http.StatusBadGateway, KindProviderError, "The AI provider returned an unusable answer.")

	case errors.As(err, &fetchErr):
		return c(http.StatusBadRequest, KindJobFetchFailed, "The job description could not be fetched from the URL.")
	case errors.Is(err, rendering.ErrEmptyFragment):
		return c(http.StatusNotFound, KindNotFound, "The artifact has no document content.")
	case errors.As(err, &templateErr):
		return c(http.StatusInternalServerError, KindInternal, "The document could not be rendered.")

	case errors.Is(err, profile.ErrNotFound), errors.Is(err, db.ErrNotFound):
		return c(http.StatusNotFound, KindNotFound, "Not found.")
	case errors.As(err, &blobErr), errors.As(err, &storageErr), errors.Is(err, db.ErrConflict):
		return c(http.StatusInternalServerError, KindStorageError, "A storage error occurred.")

	case errors.Is(err, context.DeadlineExceeded):
		return c(http.StatusGatewayTimeout, KindInternal, "The request timed out.")
	default:
		return c(http.StatusInternalServerError, KindInternal, "An internal error occurred.")
	}
}

// messageOf prefers the validation message written by the credential store.
func messageOf(target *auth.ErrValidation, err error, fallback string) string {
	if errors.As(err, &target) && target.Message != "" {
		return target.Message
	}
	return fallback
}

func fieldMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Invalid request."
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required."
	case "max":
		return fe.Field() + " is too long."
	case "url", "http_url":
		return fe.Field() + " must be a valid URL."
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param() + "."
	default:
		return fe.Field() + " is invalid."
	}
}
