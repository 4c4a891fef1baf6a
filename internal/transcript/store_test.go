package transcript

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ashutoshrp06/taskloop/internal/types"
)

func TestStore_PreservesOrder(t *testing.T) {
	store := NewStore()
	call := types.FunctionCall{Name: "add", Args: map[string]any{"a": 1.0, "b": 1.0}}

	want := []types.Message{
		types.UserText("hello"),
		types.ModelCall("", call),
		types.FunctionResult(call, types.Succeeded(2.0)),
		types.ModelText("done"),
		types.ModelText("done"),
	}
	for _, msg := range want {
		if err := store.Append(msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got := store.Messages()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d (no deduplication allowed)", len(want), len(got))
	}
	for i := range want {
		if got[i].Kind != want[i].Kind || got[i].Text != want[i].Text {
			t.Errorf("message %d: got %s %q, want %s %q", i, got[i].Kind, got[i].Text, want[i].Kind, want[i].Text)
		}
	}
}

func TestStore_FirstMessageMustBeUserText(t *testing.T) {
	store := NewStore()
	if err := store.Append(types.ModelText("hi")); !errors.Is(err, ErrFirstMessage) {
		t.Fatalf("expected ErrFirstMessage, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("rejected message must not be stored")
	}
}

func TestStore_MessagesReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Append(types.UserText("original"))

	msgs := store.Messages()
	msgs[0].Text = "mutated"

	if store.Messages()[0].Text != "original" {
		t.Fatal("caller mutation leaked into the store")
	}
}

func TestStore_LastAndFirstUserText(t *testing.T) {
	store := NewStore()
	if _, ok := store.Last(); ok {
		t.Fatal("empty store should have no last message")
	}

	store.Append(types.UserText("task"), types.ModelText("answer"))

	last, ok := store.Last()
	if !ok || last.Text != "answer" {
		t.Fatalf("unexpected last message: %+v", last)
	}
	if store.FirstUserText() != "task" {
		t.Fatalf("unexpected first user text: %q", store.FirstUserText())
	}
}

func TestStore_ManyAppends(t *testing.T) {
	store := NewStore()
	store.Append(types.UserText("start"))
	for i := 0; i < 100; i++ {
		store.Append(types.ModelText(fmt.Sprintf("m%d", i)))
	}

	msgs := store.Messages()
	for i := 0; i < 100; i++ {
		if msgs[i+1].Text != fmt.Sprintf("m%d", i) {
			t.Fatalf("message %d out of order: %q", i+1, msgs[i+1].Text)
		}
	}
}
