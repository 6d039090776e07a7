package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeRaceLost, status: http.StatusConflict, publicMsg: "a concurrent update won the transition", detailsOK: true},
		{code: CodeDiscrepancy, status: http.StatusUnprocessableEntity, publicMsg: "balance discrepancy detected", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error"},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tc.publicMsg {
			t.Fatalf("%s: expected message %q, got %q", tc.code, tc.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable %v", tc.code, tc.retryable)
		}
		if meta.DetailsAllowed != tc.detailsOK {
			t.Fatalf("%s: expected details allowed %v", tc.code, tc.detailsOK)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_REAL_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("underlying failure")
	err := Wrap(CodeDependency, cause, "store unavailable")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: store unavailable" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(New(CodeDependency, "timeout")) {
		t.Fatal("dependency errors should be retryable")
	}
	if Retryable(New(CodeValidation, "bad input")) {
		t.Fatal("validation errors should not be retryable")
	}
	if Retryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors should not be retryable")
	}
}

func TestAsExtractsTypedError(t *testing.T) {
	err := New(CodeNotFound, "wallet event missing").WithDetails(map[string]any{"event_id": "abc"})
	wrapped := Wrap(CodeInternal, err, "outer")

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInternal {
		t.Fatalf("expected outermost code, got %s", typed.Code())
	}

	if As(nil) != nil {
		t.Fatal("As(nil) should be nil")
	}
}
