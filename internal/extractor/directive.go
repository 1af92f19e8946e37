package extractor

import (
	"errors"
	"strings"
	"unicode"
)

var (
	errOnlyServices     = errors.New("the only allowed attribute is `services`")
	errExpectedEquals   = errors.New("expected `services` to be followed by a `=` and one or more services, e.g. `services = sqs`")
	errExpectedServices = errors.New("expected one or more services, separated by `,` after keyword `services`, e.g. `services = sqs,s3`")
)

// parseDirectiveArgs parses `services = a, b`. `sdk` is accepted in place of
// `services`. Empty input means the directive carries no hint.
func parseDirectiveArgs(args string) ([]string, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return nil, nil
	}

	keyword := leadingIdent(args)
	if keyword != "services" && keyword != "sdk" {
		return nil, errOnlyServices
	}

	rest := strings.TrimSpace(args[len(keyword):])
	if !strings.HasPrefix(rest, "=") {
		return nil, errExpectedEquals
	}
	rest = strings.TrimSpace(rest[1:])

	parts := strings.Split(rest, ",")
	// A single trailing comma is accepted.
	if len(parts) > 1 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	var services []string
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" || leadingIdent(name) != name {
			return nil, errExpectedServices
		}
		services = append(services, name)
	}
	return services, nil
}

func leadingIdent(s string) string {
	end := 0
	for i, r := range s {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end = i + len(string(r))
	}
	return s[:end]
}
