package membersdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stable API error codes.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeInviteInvalid    = "invite_invalid"
	ErrorCodeEmailMismatch    = "email_mismatch"
	ErrorCodeAlreadyMember    = "already_member"
	ErrorCodeOwnerImmutable   = "owner_immutable"
	ErrorCodeDuplicateInvite  = "duplicate_pending_invite"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeForbidden        = "forbidden"
	ErrorCodeSlugTaken        = "slug_taken"
	ErrorCodeEmailTaken       = "email_taken"
	ErrorCodeServerError      = "server_error"
	ErrorCodeRateLimited      = "rate_limit_exceeded"
)

// APIError is the error payload the service returns on non-2xx responses.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s (http %d)", e.Code, e.Description, e.StatusCode)
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
