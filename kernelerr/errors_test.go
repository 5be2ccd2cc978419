package kernelerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorfClassifiesWithErrorsIs(t *testing.T) {
	err := Errorf(ErrInterface, "kernel: unknown handle %d", 42)

	if !errors.Is(err, ErrInterface) {
		t.Error("expected errors.Is to match ErrInterface")
	}
	if errors.Is(err, ErrConfiguration) {
		t.Error("did not expect errors.Is to match an unrelated category")
	}
}

func TestWrapPreservesUnderlyingChain(t *testing.T) {
	sentinel := errors.New("boom")
	err := Wrap(ErrResource, fmt.Errorf("allocate grid: %w", sentinel))

	if !errors.Is(err, ErrResource) {
		t.Error("expected errors.Is to match ErrResource")
	}
	if !errors.Is(err, sentinel) {
		t.Error("expected errors.Is to still reach the wrapped sentinel")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(ErrInterface, nil) != nil {
		t.Error("expected Wrap(category, nil) to return nil")
	}
}

func TestErrorMessageIncludesCategoryAndDetail(t *testing.T) {
	err := Errorf(ErrIntegrity, "state hash mismatch at event_id %d", 7)
	want := "integrity: state hash mismatch at event_id 7"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
