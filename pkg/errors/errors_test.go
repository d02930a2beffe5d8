package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestUnknownConnectorError(t *testing.T) {
	err := &UnknownConnectorError{ID: "planet"}

	if !errors.Is(err, ErrUnknownConnector) {
		t.Error("UnknownConnectorError should match ErrUnknownConnector")
	}
	if !IsUnknownConnector(err) {
		t.Error("IsUnknownConnector should report true")
	}
	want := `connector "planet" is not registered`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNotAuthenticatedError(t *testing.T) {
	err := &NotAuthenticatedError{Connector: "dataspace"}

	if !errors.Is(err, ErrNotAuthenticated) {
		t.Error("NotAuthenticatedError should match ErrNotAuthenticated")
	}
	if errors.Is(err, ErrAuthFailed) {
		t.Error("NotAuthenticatedError should not match ErrAuthFailed")
	}
}

func TestAuthenticationError(t *testing.T) {
	cause := errors.New("invalid_client")
	err := &AuthenticationError{
		Connector: "dataspace",
		Method:    "client_credentials",
		Message:   "token exchange rejected",
		Err:       cause,
	}

	if !IsAuthFailed(err) {
		t.Error("AuthenticationError should match ErrAuthFailed")
	}
	if !errors.Is(err, cause) {
		t.Error("AuthenticationError should unwrap to its cause")
	}
}

func TestTransientError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapTransient("umbra", "https://example.com/catalog.json", cause)

	if !IsTransient(err) {
		t.Error("wrapped transient error should match ErrTransient")
	}
	if !errors.Is(err, cause) {
		t.Error("TransientError should unwrap to its cause")
	}
	if WrapTransient("umbra", "", nil) != nil {
		t.Error("WrapTransient(nil) should return nil")
	}
}

func TestParseError(t *testing.T) {
	err := WrapParse("json", "umbra", errors.New("unexpected end of input"))

	if !IsMalformedResponse(err) {
		t.Error("ParseError should match ErrMalformedResponse")
	}
	if IsTransient(err) {
		t.Error("ParseError must not be classified as retryable")
	}
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Operation: "search", Duration: 10 * time.Second}

	if !IsTimeout(err) {
		t.Error("TimeoutError should match ErrTimeout")
	}
	want := "operation search timed out after 10s"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		auth      bool
		transient bool
	}{
		{401, true, false},
		{403, true, false},
		{500, false, true},
		{503, false, true},
		{404, false, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := &APIError{Connector: "dataspace", StatusCode: tt.status, Message: "boom"}
			if got := IsAuthFailed(err); got != tt.auth {
				t.Errorf("IsAuthFailed = %v, want %v", got, tt.auth)
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient = %v, want %v", got, tt.transient)
			}
		})
	}
}

func TestValidationError(t *testing.T) {
	err := &ValidationError{Field: "limit", Value: -1, Message: "must be positive"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}
