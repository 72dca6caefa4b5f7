package workflow

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunWithDeadline(t *testing.T) {
	t.Run("returns result within budget", func(t *testing.T) {
		got, err := RunWithDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		if err != nil {
			t.Fatalf("err = %v", err)
		}
		if got != 42 {
			t.Errorf("got %d, want 42", got)
		}
	})

	t.Run("propagates fn error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := RunWithDeadline(context.Background(), time.Second, func(ctx context.Context) (int, error) {
			return 0, boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})

	t.Run("timeout discards partial result", func(t *testing.T) {
		got, err := RunWithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) (string, error) {
			select {
			case <-time.After(time.Second):
				return "too late", nil
			case <-ctx.Done():
				return "partial", ctx.Err()
			}
		})
		if !errors.Is(err, ErrAnalysisTimeout) {
			t.Fatalf("err = %v, want ErrAnalysisTimeout", err)
		}
		if got != "" {
			t.Errorf("got %q, want zero value", got)
		}
	})

	t.Run("timeout cancels the inner context", func(t *testing.T) {
		cancelled := make(chan struct{})
		_, err := RunWithDeadline(context.Background(), 10*time.Millisecond, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			close(cancelled)
			return 0, ctx.Err()
		})
		if !errors.Is(err, ErrAnalysisTimeout) {
			t.Fatalf("err = %v", err)
		}
		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("inner context never cancelled after timeout")
		}
	})

	t.Run("zero budget disables deadline", func(t *testing.T) {
		got, err := RunWithDeadline(context.Background(), 0, func(ctx context.Context) (int, error) {
			time.Sleep(5 * time.Millisecond)
			return 7, nil
		})
		if err != nil || got != 7 {
			t.Fatalf("got %d, %v", got, err)
		}
	})

	t.Run("parent cancellation wins over budget", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := RunWithDeadline(ctx, time.Second, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}

func TestTimeoutErrorMessage(t *testing.T) {
	if ErrAnalysisTimeout.Error() != "Analysis timed out after 2 minutes" {
		t.Errorf("message = %q", ErrAnalysisTimeout.Error())
	}
}

func TestEngineErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := &EngineError{NodeID: NodeSecurityAnalysis, Message: cause.Error(), Code: "NODE_FAILED", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	var ee *EngineError
	if !errors.As(error(err), &ee) {
		t.Error("errors.As should match *EngineError")
	}
	if err.Error() != "node security_analysis: connection reset" {
		t.Errorf("Error() = %q", err.Error())
	}
}
