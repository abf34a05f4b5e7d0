// v0
// internal/diagnose/classify.go
package diagnose

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/josecookai/clawdmetrics/internal/leaderboard"
	"github.com/josecookai/clawdmetrics/internal/supabase"
)

// Kind is the category a failure was classified into.
type Kind int

const (
	KindNone Kind = iota
	KindCredentials
	KindMissingProcedure
	KindPermission
	KindMissingConfig
	KindMissingEndpoint
	KindNetwork
	KindGeneric
	KindUnexpectedShape
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	KindCredentials:      "credentials",
	KindMissingProcedure: "missing_procedure",
	KindPermission:       "permission",
	KindMissingConfig:    "missing_config",
	KindMissingEndpoint:  "missing_endpoint",
	KindNetwork:          "network",
	KindGeneric:          "generic",
	KindUnexpectedShape:  "unexpected_shape",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Diagnostic is the user-facing outcome of classifying a failure. Raw is
// the text the rules were matched against.
type Diagnostic struct {
	Kind    Kind
	Message string
	Raw     string
}

// rule matches when any of the substrings is present, or when all of them
// are present if all is set. Matching is case-sensitive.
type rule struct {
	kind  Kind
	subs  []string
	all   bool
	msgID string
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{kind: KindCredentials, subs: []string{"Invalid API key", "JWT", "invalid"}, msgID: msgCredentials},
	{kind: KindMissingProcedure, subs: []string{"function", "does not exist"}, all: true, msgID: msgMissingProcedure},
	{kind: KindPermission, subs: []string{"permission", "denied"}, msgID: msgPermission},
	{kind: KindMissingConfig, subs: []string{"Missing", "undefined"}, msgID: msgMissingConfig},
	{kind: KindMissingEndpoint, subs: []string{"Function not found", "404"}, msgID: msgMissingEndpoint},
	{kind: KindNetwork, subs: []string{"Failed to send", "fetch"}, msgID: msgNetwork},
}

func (r rule) matches(text string) bool {
	for _, s := range r.subs {
		hit := strings.Contains(text, s)
		if r.all && !hit {
			return false
		}
		if !r.all && hit {
			return true
		}
	}
	return r.all
}

// Classifier renders diagnostics in one language.
type Classifier struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a classifier for locale. Unknown locales fall back to
// Simplified Chinese.
func New(locale string) *Classifier {
	tag := matchLocale(locale)
	return &Classifier{tag: tag, printer: newPrinter(tag)}
}

// Locale reports the language the classifier renders in.
func (c *Classifier) Locale() language.Tag { return c.tag }

var defaultClassifier = New("zh-Hans")

// Classify maps err to a Simplified Chinese diagnostic.
func Classify(err error, transport supabase.Transport) Diagnostic {
	return defaultClassifier.Classify(err, transport)
}

// Classify maps err to a diagnostic. A nil error yields KindNone. Shape
// errors are recognised before the substring table; anything the table
// does not match becomes a generic message embedding the raw text, worded
// for the transport that produced it.
func (c *Classifier) Classify(err error, transport supabase.Transport) Diagnostic {
	if err == nil {
		return Diagnostic{Kind: KindNone}
	}

	var shapeErr *leaderboard.ShapeError
	if errors.As(err, &shapeErr) {
		return Diagnostic{
			Kind:    KindUnexpectedShape,
			Message: c.printer.Sprintf(msgUnexpectedShape),
			Raw:     string(shapeErr.Raw),
		}
	}

	text := errorText(err)
	for _, r := range rules {
		if r.matches(text) {
			return Diagnostic{Kind: r.kind, Message: c.printer.Sprintf(r.msgID), Raw: text}
		}
	}

	generic := msgGenericRPC
	if transport == supabase.TransportFunction {
		generic = msgGenericFunction
	}
	return Diagnostic{Kind: KindGeneric, Message: c.printer.Sprintf(generic, text), Raw: text}
}

// errorText is the message the backend reported, or the error string for
// failures that never reached it.
func errorText(err error) string {
	var re *supabase.RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}
