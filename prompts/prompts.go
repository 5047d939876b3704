package prompts

import (
	"strings"

	"clinic-chat/config"
	"clinic-chat/models"
)

const procedurePlaceholder = "{PROCEDURE_NAME}"

// Page is the raw page context a chat turn arrives with.
type Page struct {
	Context       models.PageContext
	ProcedureName string
}

// Resolved is the pair of messages selected for a page context.
type Resolved struct {
	SystemMessage  string
	WelcomeMessage string
}

// Resolve maps a page context to its system and welcome messages. Pure
// template selection and substitution: identical input always yields
// identical output. Unknown contexts and a procedure context without a
// procedure name fall back to the default templates.
func Resolve(t config.Templates, page Page) Resolved {
	switch page.Context {
	case models.ContextProcedure:
		name := strings.TrimSpace(page.ProcedureName)
		if name == "" {
			break
		}
		return Resolved{
			SystemMessage:  strings.ReplaceAll(t.SystemProcedure, procedurePlaceholder, name),
			WelcomeMessage: strings.ReplaceAll(t.WelcomeProcedure, procedurePlaceholder, name),
		}
	case models.ContextContraindications:
		return Resolved{SystemMessage: t.SystemContraindications, WelcomeMessage: t.WelcomeContraindications}
	case models.ContextPrices:
		return Resolved{SystemMessage: t.SystemPrices, WelcomeMessage: t.WelcomePrices}
	}
	return Resolved{SystemMessage: t.SystemDefault, WelcomeMessage: t.WelcomeDefault}
}
