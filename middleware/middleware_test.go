package middleware

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ostiary/ostiary"
)

func TestClassifyFaultIsNotADenial(t *testing.T) {
	storeErr := fmt.Errorf("load permissions: %w", ostiary.ErrStoreUnavailable)

	o := classify(nil, storeErr)
	if o.err == nil {
		t.Fatal("store fault must surface as an error, not a response")
	}
	if !errors.Is(o.err, ostiary.ErrStoreUnavailable) {
		t.Fatalf("fault lost its cause: %v", o.err)
	}
	if o.pass || o.status != 0 {
		t.Fatalf("fault must not produce a deny response: %+v", o)
	}
}

func TestClassifyMalformedRequirement(t *testing.T) {
	o := classify(nil, fmt.Errorf("%w: unknown mode", ostiary.ErrMalformedRequirement))
	if o.err == nil || !errors.Is(o.err, ostiary.ErrMalformedRequirement) {
		t.Fatalf("malformed requirement must propagate, got %+v", o)
	}
}

func TestClassifyAllowPassesThrough(t *testing.T) {
	o := classify(&ostiary.Decision{Allowed: true, Status: ostiary.StatusAllow}, nil)
	if !o.pass || o.err != nil {
		t.Fatalf("expected pass-through, got %+v", o)
	}
}

func TestClassifyUnauthenticated(t *testing.T) {
	o := classify(&ostiary.Decision{Status: ostiary.StatusUnauthenticated}, nil)
	if o.status != 401 || o.code != "unauthenticated" {
		t.Fatalf("expected 401 unauthenticated, got %+v", o)
	}
}

func TestClassifyForbiddenCarriesMissing(t *testing.T) {
	dec := &ostiary.Decision{
		Status:  ostiary.StatusForbidden,
		Missing: []string{"users.delete"},
	}
	o := classify(dec, nil)
	if o.status != 403 || o.code != "forbidden" {
		t.Fatalf("expected 403 forbidden, got %+v", o)
	}
	if len(o.missing) != 1 || o.missing[0] != "users.delete" {
		t.Fatalf("missing list lost: %+v", o)
	}
}
