package child

import (
	"bytes"
	"testing"

	"github.com/procpool/procpool/entrypoint"
	"github.com/procpool/procpool/internal/procdaemon"
	"github.com/procpool/procpool/wire"
)

func init() {
	entrypoint.Register("double", func(n int) (int, error) { return n * 2, nil })
	entrypoint.Register("boom", func(n int) (int, error) { panic("boom") })
}

func TestRunClonePerCallProcessesExactlyOneRequest(t *testing.T) {
	arg, err := entrypoint.EncodeArg(21)
	if err != nil {
		t.Fatalf("EncodeArg: %v", err)
	}

	var in bytes.Buffer
	if err := wire.WriteRequest(&in, &wire.Request{EntryTag: "double", Arg: arg, Mode: wire.ModeClonePerCall}); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}

	var out bytes.Buffer
	if err := Run(&in, &out, procdaemon.WorkerParams{}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	resp, err := wire.ReadResponse(&out)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if !resp.OK {
		t.Fatalf("expected OK, got failure: %+v", resp.Failure)
	}

	result, err := entrypoint.DecodeResult[int](resp.Value)
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	if result != 42 {
		t.Fatalf("result = %d, want 42", result)
	}
}

func TestExecuteUnknownEntryTagFails(t *testing.T) {
	resp := execute(&wire.Request{EntryTag: "missing"}, nil)
	if resp.OK {
		t.Fatal("expected a failure response for an unregistered entry tag")
	}
	if resp.Failure.Kind != wire.FailureUser {
		t.Fatalf("Kind = %v, want FailureUser", resp.Failure.Kind)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	resp := execute(&wire.Request{EntryTag: "boom"}, nil)
	if resp.OK {
		t.Fatal("expected a failure response from a panicking job")
	}
}

func TestExecuteAppliesWrapper(t *testing.T) {
	arg, err := entrypoint.EncodeArg(5)
	if err != nil {
		t.Fatalf("EncodeArg: %v", err)
	}

	var calledWrapper bool
	wrapper := func(fn entrypoint.Func) entrypoint.Func {
		return func(argBytes []byte) ([]byte, error) {
			calledWrapper = true
			return fn(argBytes)
		}
	}

	resp := execute(&wire.Request{EntryTag: "double", Arg: arg, UseWrapper: true}, wrapper)
	if !resp.OK {
		t.Fatalf("expected OK, got failure: %+v", resp.Failure)
	}
	if !calledWrapper {
		t.Fatal("expected the wrapper to be invoked when UseWrapper is set")
	}
}
