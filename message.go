package llmstream

// Message is one canonical conversation turn. The slice passed to Prompt is
// the literal conversation order; providers collate turns into their own wire
// message shapes.
type Message interface {
	isMessage()
}

// User is a plain-text user turn.
type User string

// Assistant is a plain-text assistant turn.
type Assistant string

// ToolRequest is a tool invocation the assistant made. Arguments is the
// serialized JSON argument object.
type ToolRequest struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResponse carries the result of a tool invocation back to the model.
type ToolResponse struct {
	ID      string
	Content string
}

func (User) isMessage()         {}
func (Assistant) isMessage()    {}
func (ToolRequest) isMessage()  {}
func (ToolResponse) isMessage() {}
