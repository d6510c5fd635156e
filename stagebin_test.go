package stagebin

import (
	"context"
	"errors"
	"testing"
)

func TestPipelineRunsStepsInOrder(t *testing.T) {
	var order []string
	record := func(name string) Step {
		return NewStep(name, func(_ context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	err := New(WithoutOutput()).Execute(context.Background(), record("one"), record("two"), record("three"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(order) != 3 || order[0] != "one" || order[1] != "two" || order[2] != "three" {
		t.Errorf("Expected steps to run in order, got %v", order)
	}
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	var ran []string

	err := New(WithoutOutput()).Execute(
		context.Background(),
		NewStep("first", func(_ context.Context) error { ran = append(ran, "first"); return nil }),
		NewStep("second", func(_ context.Context) error { ran = append(ran, "second"); return boom }),
		NewStep("third", func(_ context.Context) error { ran = append(ran, "third"); return nil }),
	)

	if !errors.Is(err, boom) {
		t.Fatalf("Expected error wrapping boom, got %v", err)
	}
	if err.Error() != "second: boom" {
		t.Errorf("Expected error to be prefixed with the step name, got %q", err.Error())
	}
	if len(ran) != 2 {
		t.Errorf("Expected third step to be skipped, ran %v", ran)
	}
}

func TestPipelinePostHookAlwaysRuns(t *testing.T) {
	boom := errors.New("boom")

	for _, fail := range []bool{false, true} {
		called := false
		p := New(
			WithoutOutput(),
			WithPostExecFunc(func(_ context.Context) error { called = true; return nil }),
		)

		err := p.Execute(context.Background(), NewStep("step", func(_ context.Context) error {
			if fail {
				return boom
			}
			return nil
		}))

		if fail != (err != nil) {
			t.Errorf("fail=%v: unexpected error %v", fail, err)
		}
		if !called {
			t.Errorf("fail=%v: post exec hook was not called", fail)
		}
	}
}

func TestPipelinePostHookErrorDoesNotMaskStepError(t *testing.T) {
	boom := errors.New("boom")
	hook := errors.New("hook")

	p := New(WithoutOutput(), WithPostExecFunc(func(_ context.Context) error { return hook }))

	err := p.Execute(context.Background(), NewStep("step", func(_ context.Context) error { return boom }))
	if !errors.Is(err, boom) {
		t.Errorf("Expected step error, got %v", err)
	}

	err = p.Execute(context.Background(), NewStep("step", func(_ context.Context) error { return nil }))
	if !errors.Is(err, hook) {
		t.Errorf("Expected hook error, got %v", err)
	}
}

func TestPipelinePreHookFailureSkipsSteps(t *testing.T) {
	ran := false
	p := New(
		WithoutOutput(),
		WithPreExecFunc(func(_ context.Context) error { return errors.New("nope") }),
	)

	err := p.Execute(context.Background(), NewStep("step", func(_ context.Context) error { ran = true; return nil }))
	if err == nil {
		t.Fatal("Expected pre exec hook error")
	}
	if ran {
		t.Error("Expected steps to be skipped when the pre exec hook fails")
	}
}

func TestPipelineHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := New(WithoutOutput()).Execute(ctx, NewStep("step", func(_ context.Context) error { ran = true; return nil }))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if ran {
		t.Error("Expected step to be skipped on cancelled context")
	}
}
