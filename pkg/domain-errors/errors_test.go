package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHasCode(t *testing.T) {
	t.Run("finds code on plain error", func(t *testing.T) {
		err := New(CodeConflict, "application not in draft status")
		if !HasCode(err, CodeConflict) {
			t.Fatal("expected CodeConflict to be found")
		}
		if HasCode(err, CodeNotFound) {
			t.Fatal("did not expect CodeNotFound")
		}
	})

	t.Run("finds code through wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "session not found")
		outer := Wrap(inner, CodeInternal, "failed to load session")
		if !HasCode(outer, CodeNotFound) {
			t.Fatal("expected inner CodeNotFound to be found")
		}
		if !HasCode(outer, CodeInternal) {
			t.Fatal("expected outer CodeInternal to be found")
		}
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeForbidden, "phone mismatch"))
		if !HasCode(err, CodeForbidden) {
			t.Fatal("expected CodeForbidden through %w chain")
		}
	})

	t.Run("untagged error has no codes", func(t *testing.T) {
		if HasCode(errors.New("plain"), CodeInternal) {
			t.Fatal("plain errors carry no code")
		}
	})
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CodeInternal, "ignored") != nil {
		t.Fatal("wrapping nil must return nil")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(errors.New("plain")); got != CodeInternal {
		t.Fatalf("untagged error: got %s, want %s", got, CodeInternal)
	}
	err := Wrap(New(CodeNotFound, "inner"), CodeConflict, "outer")
	if got := CodeOf(err); got != CodeConflict {
		t.Fatalf("outermost code: got %s, want %s", got, CodeConflict)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:         http.StatusBadRequest,
		CodeBadRequest:         http.StatusBadRequest,
		CodeInvalidInput:       http.StatusBadRequest,
		CodeUnauthorized:       http.StatusUnauthorized,
		CodeForbidden:          http.StatusForbidden,
		CodeNotFound:           http.StatusNotFound,
		CodeConflict:           http.StatusConflict,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeInternal:           http.StatusInternalServerError,
		Code("unknown-future"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := HTTPStatus(code); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", code, got, want)
		}
	}
}
