package services

import (
	"context"
	"strings"
)

// Role constants shared by the vendor wire formats.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Vendor identifies which API backend handles a chat turn.
type Vendor string

const (
	VendorOpenAIChat       Vendor = "openai_chat"
	VendorOpenAIAssistants Vendor = "openai_assistants"
	VendorAnthropic        Vendor = "anthropic"
)

// SelectVendor picks the backend for a configured model. The match on
// "claude" is an exact, case-sensitive substring check. Models without it
// go to the Assistants API when an assistant id is configured, otherwise
// to plain Chat Completions. Total: every input maps to exactly one
// vendor, with no fallback chaining.
func SelectVendor(model string, assistantIDConfigured bool) Vendor {
	if strings.Contains(model, "claude") {
		return VendorAnthropic
	}
	if assistantIDConfigured {
		return VendorOpenAIAssistants
	}
	return VendorOpenAIChat
}

// TurnInput is one user turn as seen by a backend adapter. ThreadID is the
// vendor continuity token from the previous turn; it is empty on the first
// turn and ignored by stateless backends.
type TurnInput struct {
	Message       string
	SystemMessage string
	ThreadID      string
}

// TurnOutput is the normalized result every adapter produces. ThreadID is
// set only by backends that keep server-side conversation state.
type TurnOutput struct {
	Message  string
	ThreadID string
}

// Backend is the uniform send contract implemented by every vendor
// adapter. Adapters hide their protocol shape (including the Assistants
// run polling) behind this single synchronous call.
type Backend interface {
	Send(ctx context.Context, in TurnInput) (TurnOutput, error)
}

// Backends holds one constructed adapter per vendor.
type Backends struct {
	OpenAIChat       Backend
	OpenAIAssistants Backend
	Anthropic        Backend
}

// ForVendor returns the adapter for a selection made by SelectVendor.
func (b Backends) ForVendor(v Vendor) Backend {
	switch v {
	case VendorAnthropic:
		return b.Anthropic
	case VendorOpenAIAssistants:
		return b.OpenAIAssistants
	default:
		return b.OpenAIChat
	}
}
