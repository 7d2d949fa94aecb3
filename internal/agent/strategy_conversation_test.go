package agent

import (
	"context"
	"testing"
)

// TestConversation_Idempotence checks spec.md §8's idempotence property:
// Conversation wrapping CompleteTask over N turns with the same user
// inputs produces the same message prefix as a single run whose initial
// state is the concatenation of those inputs.
func TestConversation_Idempotence(t *testing.T) {
	reply := func(text string) ApiResponse {
		return ApiResponse{Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: text}, FinishReason: FinishStop}}}
	}

	model := &fakeModel{responses: []ApiResponse{reply("one"), reply("two")}}
	dispatcher := &fakeDispatcher{}
	conv := NewConversation(NewCompleteTask(nil))
	loop := NewAgentLoop(conv, model, dispatcher, 0, nil)

	state1 := NewAgentState("sys", nil, "first")
	_, final1, err := loop.Run(context.Background(), state1)
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}

	state2 := NewAgentState("", final1.Messages, "second")
	_, final2, err := loop.Run(context.Background(), state2)
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	wantRoles := []Role{RoleSystem, RoleUser, RoleAssistant, RoleUser, RoleAssistant}
	if len(final2.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d: %+v", len(wantRoles), len(final2.Messages), final2.Messages)
	}
	for i, role := range wantRoles {
		if final2.Messages[i].Role != role {
			t.Fatalf("message %d: expected role %s, got %s", i, role, final2.Messages[i].Role)
		}
	}
	if final2.Messages[2].Content != "one" || final2.Messages[4].Content != "two" {
		t.Fatalf("unexpected assistant contents: %+v", final2.Messages)
	}
}
