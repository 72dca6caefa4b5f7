package model

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockChatModelScriptedResponses(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{
		{Text: "first"},
		{Text: "second"},
	}}
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	for i, want := range []string{"first", "second", "second", "second"} {
		out, err := mock.Chat(ctx, msgs)
		if err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
		if out.Text != want {
			t.Errorf("call %d = %q, want %q (last response repeats)", i+1, out.Text, want)
		}
	}
	if mock.CallCount() != 4 {
		t.Errorf("CallCount = %d, want 4", mock.CallCount())
	}
}

func TestMockChatModelErrOn(t *testing.T) {
	boom := errors.New("boom")
	mock := &MockChatModel{
		Responses: []ChatOut{{Text: "ok"}},
		ErrOn:     map[int]error{2: boom},
	}
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	if _, err := mock.Chat(ctx, msgs); err != nil {
		t.Fatalf("call 1: %v", err)
	}
	if _, err := mock.Chat(ctx, msgs); !errors.Is(err, boom) {
		t.Fatalf("call 2 err = %v, want boom", err)
	}
	if out, err := mock.Chat(ctx, msgs); err != nil || out.Text != "ok" {
		t.Fatalf("call 3 = %q, %v", out.Text, err)
	}
}

func TestMockChatModelDelayHonorsContext(t *testing.T) {
	mock := &MockChatModel{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := mock.Chat(ctx, []Message{{Role: RoleUser, Content: "hi"}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Chat blocked %v, should return on cancellation", elapsed)
	}
}

func TestMockChatModelReset(t *testing.T) {
	mock := &MockChatModel{Responses: []ChatOut{{Text: "a"}, {Text: "b"}}}
	ctx := context.Background()
	msgs := []Message{{Role: RoleUser, Content: "hi"}}

	_, _ = mock.Chat(ctx, msgs)
	_, _ = mock.Chat(ctx, msgs)
	mock.Reset()

	if mock.CallCount() != 0 {
		t.Errorf("CallCount after Reset = %d", mock.CallCount())
	}
	out, _ := mock.Chat(ctx, msgs)
	if out.Text != "a" {
		t.Errorf("first call after Reset = %q, want %q", out.Text, "a")
	}
}
