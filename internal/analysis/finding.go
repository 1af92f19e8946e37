package analysis

import (
	"errors"
	"fmt"
	"strings"

	"reqprops/internal/syntax"
)

type Kind string

const (
	KindMissing   Kind = "missing"
	KindAmbiguous Kind = "ambiguous"
)

// Finding is the result for one segment. Missing findings carry Service and
// Missing; ambiguous findings carry Candidates.
type Finding struct {
	Kind       Kind            `json:"kind"`
	Method     string          `json:"method"`
	Service    string          `json:"service,omitempty"`
	Missing    []string        `json:"missing,omitempty"`
	Candidates []string        `json:"candidates,omitempty"`
	Location   syntax.Location `json:"location"`
	ResolvedBy string          `json:"resolved_by,omitempty"`
}

// ErrUnknownServices is the sentinel wrapped by *UnknownServicesError.
var ErrUnknownServices = errors.New("unknown services")

// UnknownServicesError lists directive services absent from the knowledge base.
type UnknownServicesError struct {
	Services []string
}

func (e *UnknownServicesError) Error() string {
	return "some of the services you specified do not exist in the knowledge base: " + strings.Join(e.Services, ", ")
}

func (e *UnknownServicesError) Unwrap() error {
	return ErrUnknownServices
}

// ConfigError blocks the analysis of one function.
type ConfigError struct {
	Function string
	Location syntax.Location
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Function, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
