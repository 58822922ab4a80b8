package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	t.Parallel()

	if got := MetadataFor(CodeInsufficientStock).HTTPStatus; got != http.StatusUnprocessableEntity {
		t.Fatalf("insufficient stock status = %d", got)
	}
	if got := MetadataFor(CodeConflict); !got.Retryable {
		t.Fatalf("conflict should be retryable: %+v", got)
	}
	if got := MetadataFor(Code("bogus")).HTTPStatus; got != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got %d", got)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("row locked")
	err := Wrap(CodeConflict, cause, "voucher version mismatch")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause lost")
	}
	if err.Error() != "CONFLICT: voucher version mismatch" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestAsThroughChain(t *testing.T) {
	t.Parallel()

	inner := New(CodeInsufficientStock, "issue would drive stock negative").
		WithDetails(map[string]any{"variant_id": "v1"})
	outer := fmt.Errorf("posting voucher: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through wrap chain")
	}
	if typed.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code %s", typed.Code())
	}
	if typed.Details() == nil {
		t.Fatal("details lost")
	}
	if !HasCode(outer, CodeInsufficientStock) {
		t.Fatal("HasCode should see through the chain")
	}
	if HasCode(outer, CodeValidation) {
		t.Fatal("HasCode matched wrong code")
	}
	if As(errors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
}
