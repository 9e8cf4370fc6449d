package chat

import "testing"

func TestConversation_Prompt(t *testing.T) {
	var c Conversation
	if got := c.Prompt(); got != "=> " {
		t.Errorf("unset prompt = %q", got)
	}
	if _, ok := c.Target(); ok {
		t.Error("zero Conversation should have no target")
	}

	c.Set("0xabc")
	if got := c.Prompt(); got != "[0xabc] => " {
		t.Errorf("prompt = %q", got)
	}

	c.Set("")
	target, ok := c.Target()
	if !ok || target != "" {
		t.Errorf("empty target should be set, got (%q, %v)", target, ok)
	}
	if got := c.Prompt(); got != "[] => " {
		t.Errorf("empty-target prompt = %q", got)
	}
}
