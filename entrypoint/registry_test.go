package entrypoint

import "testing"

func TestRegisterAndLookup(t *testing.T) {
	Register("entrypoint-test-double", func(n int) (int, error) {
		return n * 2, nil
	})

	fn, ok := Lookup("entrypoint-test-double")
	if !ok {
		t.Fatal("expected entry point to be registered")
	}

	argBytes, err := EncodeArg(21)
	if err != nil {
		t.Fatalf("EncodeArg: %v", err)
	}

	resultBytes, err := fn(argBytes)
	if err != nil {
		t.Fatalf("fn: %v", err)
	}

	result, err := DecodeResult[int](resultBytes)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %d", result)
	}
}

func TestLookupMissing(t *testing.T) {
	if _, ok := Lookup("entrypoint-test-does-not-exist"); ok {
		t.Fatal("expected missing tag to report not-found")
	}
}

func TestRegisterPropagatesFunctionError(t *testing.T) {
	Register("entrypoint-test-fails", func(int) (int, error) {
		return 0, errBoom
	})

	fn, _ := Lookup("entrypoint-test-fails")
	argBytes, _ := EncodeArg(1)
	if _, err := fn(argBytes); err != errBoom {
		t.Fatalf("expected errBoom, got %v", err)
	}
}

var errBoom = errTest("boom")

type errTest string

func (e errTest) Error() string { return string(e) }
