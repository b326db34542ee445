package exprql_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/zoobzio/exprql"
)

func constFragment(s string) exprql.Fragment {
	return func(exprql.FragmentContext, any) (string, error) { return s, nil }
}

func TestFragmentsFirstWins(t *testing.T) {
	r := exprql.NewFragments(nil)

	first, err := r.Register("now", constFragment("NOW()"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	second, err := r.Register("now", constFragment("CURRENT_TIMESTAMP"))
	if err != nil {
		t.Fatalf("Re-register should not fail: %v", err)
	}
	if first != second {
		t.Error("Expected re-registration to return the existing handle")
	}

	fn, ok := r.Lookup("now")
	if !ok {
		t.Fatal("Expected now to be registered")
	}
	if s, _ := fn(nil, nil); s != "NOW()" {
		t.Errorf("Expected first registration to win, got %s", s)
	}
}

func TestStrictFragmentsRejectDuplicates(t *testing.T) {
	r := exprql.NewStrictFragments(nil)

	if _, err := r.Register("now", constFragment("NOW()")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	_, err := r.Register("now", constFragment("CURRENT_TIMESTAMP"))
	if !errors.Is(err, exprql.ErrDuplicateRegistration) {
		t.Fatalf("Expected ErrDuplicateRegistration, got %v", err)
	}
	if keys := r.Keys(); len(keys) != 1 || keys[0] != "now" {
		t.Errorf("Expected [now], got %v", keys)
	}
}

func TestFragmentRegistrationValidation(t *testing.T) {
	r := exprql.NewFragments(nil)
	if _, err := r.Register("bad key", constFragment("x")); !errors.Is(err, exprql.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}
	if _, err := r.Register("nil_fn", nil); err == nil {
		t.Error("Expected error for nil fragment")
	}
	if _, ok := r.Lookup("nil_fn"); ok {
		t.Error("Failed registration must not be visible")
	}
}

func TestDefaultRegistries(t *testing.T) {
	a, err := exprql.RegisterDynamicSQL("registry_test_default", constFragment("1"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := exprql.RegisterDynamicSQL("registry_test_default", constFragment("2"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Expected the default registry to keep the first handle")
	}

	if _, err := exprql.RegisterStrictSQL("registry_test_strict", constFragment("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := exprql.RegisterStrictSQL("registry_test_strict", constFragment("2")); !errors.Is(err, exprql.ErrDuplicateRegistration) {
		t.Errorf("Expected ErrDuplicateRegistration, got %v", err)
	}
}

func TestFragmentsConcurrentRegister(t *testing.T) {
	r := exprql.NewFragments(nil)
	handles := make([]*exprql.FragmentHandle, 16)

	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Register("shared", constFragment("x"))
			if err != nil {
				t.Errorf("Register failed: %v", err)
				return
			}
			handles[i] = h
		}(i)
	}
	wg.Wait()

	for _, h := range handles[1:] {
		if h != handles[0] {
			t.Fatal("Expected every caller to receive the same handle")
		}
	}
}
