package syntax

import "slices"

const (
	LanguageRust = "rust"
	LanguageGo   = "go"
)

// Dialect carries the per-language names the analysis keys on.
type Dialect struct {
	Language string
	// Terminal is the call that dispatches a built request.
	Terminal string
	// ClientType is the final type path segment of a client parameter.
	ClientType string
	// ConstructorMarkers are callee path segments that construct a client.
	ConstructorMarkers []string
	// NamespacePrefix precedes the service name in a qualifying path segment.
	NamespacePrefix string
	// Directive marks a function for analysis.
	Directive string
}

func RustDialect() Dialect {
	return Dialect{
		Language:           LanguageRust,
		Terminal:           "send",
		ClientType:         "Client",
		ConstructorMarkers: []string{"Client"},
		NamespacePrefix:    "aws_sdk_",
		Directive:          "required_props",
	}
}

// GoDialect targets aws-sdk-go-v2 clients. Calls taking an `<Operation>Input`
// literal are read as chains closed by a synthetic Do, and builder clients
// whose chains end in Do are read as written. Method names are compared after
// snake_case normalisation, hence the lower-case terminal.
func GoDialect() Dialect {
	return Dialect{
		Language:           LanguageGo,
		Terminal:           "do",
		ClientType:         "Client",
		ConstructorMarkers: []string{"Client", "NewClient", "NewFromConfig"},
		NamespacePrefix:    "github.com/aws/aws-sdk-go-v2/service/",
		Directive:          "reqprops:required",
	}
}

// DefaultDialect returns the built-in dialect for a language.
func DefaultDialect(language string) (Dialect, bool) {
	switch language {
	case LanguageRust:
		return RustDialect(), true
	case LanguageGo:
		return GoDialect(), true
	}
	return Dialect{}, false
}

// IsConstructor reports whether any segment of a callee path is a constructor marker.
func (d Dialect) IsConstructor(segments []string) bool {
	for _, s := range segments {
		if slices.Contains(d.ConstructorMarkers, s) {
			return true
		}
	}
	return false
}
