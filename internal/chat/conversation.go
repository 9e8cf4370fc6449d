// Package chat turns console lines into chat messages on the bus and prints
// what comes back.
//
// Two execution models meet here. The InputLoop blocks on the terminal in its
// own goroutine and hands SendIntents over a channel of capacity one. The
// Dispatcher drains that channel and starts one goroutine per send, so a slow
// peer never holds up the next line. Send results and inbound messages all
// print through one shared console.Sink.
package chat

// Conversation is the currently selected peer. The zero value has no peer.
// It is owned by the InputLoop goroutine and needs no locking.
type Conversation struct {
	target string
	set    bool
}

// Target returns the selected peer and whether one is selected.
// An empty target with ok == true is a valid, if unroutable, selection.
func (c Conversation) Target() (string, bool) {
	return c.target, c.set
}

// Set selects target as the peer for subsequent messages.
func (c *Conversation) Set(target string) {
	c.target = target
	c.set = true
}

// Prompt renders the input prompt for the current selection.
func (c Conversation) Prompt() string {
	if !c.set {
		return "=> "
	}
	return "[" + c.target + "] => "
}

// SendIntent is one message the user asked to send.
type SendIntent struct {
	target string
	body   string
}

func NewSendIntent(target, body string) SendIntent {
	return SendIntent{target: target, body: body}
}

func (i SendIntent) Target() string { return i.target }
func (i SendIntent) Body() string   { return i.body }
