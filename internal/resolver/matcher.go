package resolver

import (
	"slices"
	"strings"
)

// NameMatcher guesses a service from a binding name such as `sqs_client`.
type NameMatcher interface {
	Match(binding string, services []string) (string, bool)
}

// StripClientMatcher removes "client" and "_" from the binding and looks
// for a service with exactly the remaining name.
type StripClientMatcher struct{}

func (StripClientMatcher) Match(binding string, services []string) (string, bool) {
	name := strings.ReplaceAll(binding, "client", "")
	name = strings.ReplaceAll(name, "_", "")
	if name == "" || !slices.Contains(services, name) {
		return "", false
	}
	return name, true
}
