package genai

import "strings"

// Directive is a bracketed action token the model may embed in a reply.
type Directive string

const (
	DirectiveNone         Directive = ""
	DirectiveShowMenu     Directive = "[SHOW_MENU]"
	DirectiveShowPrices   Directive = "[SHOW_PRICES]"
	DirectiveShowSchedule Directive = "[SHOW_SCHEDULE]"
	DirectiveShowLocation Directive = "[SHOW_LOCATION]"
	DirectiveHandoff      Directive = "[HANDOFF]"
	DirectiveUnknown      Directive = "[UNKNOWN]"
)

// directives the parser recognizes. One directive per reply: the token that
// appears earliest in the text wins and later tokens are treated as display
// text.
var directives = []Directive{
	DirectiveShowMenu,
	DirectiveShowPrices,
	DirectiveShowSchedule,
	DirectiveShowLocation,
	DirectiveHandoff,
	DirectiveUnknown,
}

// Reply is a model completion split into display text and action.
type Reply struct {
	DisplayText string
	Directive   Directive
}

// ParseReply extracts the first known directive token from raw model output
// and returns the remaining display text. Unrecognized bracketed tokens stay
// in the text untouched.
func ParseReply(raw string) Reply {
	text := strings.TrimSpace(raw)
	first := -1
	var match Directive
	for _, d := range directives {
		if idx := strings.Index(text, string(d)); idx >= 0 && (first < 0 || idx < first) {
			first = idx
			match = d
		}
	}
	if first < 0 {
		return Reply{DisplayText: text}
	}
	cleaned := strings.TrimSpace(text[:first] + text[first+len(match):])
	return Reply{DisplayText: cleaned, Directive: match}
}
