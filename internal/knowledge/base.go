package knowledge

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
)

//go:embed data/required_props.csv
var defaultTable []byte

// ErrMalformedRecord is returned when a table line does not have exactly three fields.
var ErrMalformedRecord = errors.New("malformed knowledge base record")

// Base maps method names to the arguments each service requires for that method.
// A Base is never modified after construction and is safe for concurrent reads.
type Base struct {
	methods     map[string]map[string][]string
	services    []string
	fingerprint string
}

// Candidates is the knowledge base entry for a single method.
// Services is sorted so every caller iterates it in the same order.
type Candidates struct {
	Method   string
	Services []string
	Required map[string][]string
}

// Default parses the table embedded in the binary.
func Default() (*Base, error) {
	return Parse(bytes.NewReader(defaultTable))
}

// Load reads a table from disk. An empty path selects the embedded table.
func Load(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base %s: %w", path, err)
	}
	defer f.Close()

	b, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %s: %w", path, err)
	}
	return b, nil
}

// Parse reads newline-delimited `service,method,arg1 arg2 ...` records.
// Repeated (service, method) records extend the argument list.
func Parse(r io.Reader) (*Base, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = 3
	reader.TrimLeadingSpace = true

	methods := make(map[string]map[string][]string)
	serviceSet := make(map[string]struct{})

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w on line %d: expected service,method,arguments", ErrMalformedRecord, parseErr.Line)
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}

		service := strings.TrimSpace(record[0])
		method := strings.TrimSpace(record[1])
		if service == "" || method == "" {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w on line %d: empty service or method", ErrMalformedRecord, line)
		}

		byService, ok := methods[method]
		if !ok {
			byService = make(map[string][]string)
			methods[method] = byService
		}
		args := byService[service]
		for _, arg := range strings.Fields(record[2]) {
			if !slices.Contains(args, arg) {
				args = append(args, arg)
			}
		}
		byService[service] = args
		serviceSet[service] = struct{}{}
	}

	services := make([]string, 0, len(serviceSet))
	for s := range serviceSet {
		services = append(services, s)
	}
	sort.Strings(services)

	sum := sha256.Sum256(content)
	return &Base{
		methods:     methods,
		services:    services,
		fingerprint: hex.EncodeToString(sum[:]),
	}, nil
}

// Has reports whether any service defines the method.
func (b *Base) Has(method string) bool {
	_, ok := b.methods[method]
	return ok
}

// Lookup returns the candidates for a method.
func (b *Base) Lookup(method string) (Candidates, bool) {
	byService, ok := b.methods[method]
	if !ok {
		return Candidates{}, false
	}

	c := Candidates{
		Method:   method,
		Services: make([]string, 0, len(byService)),
		Required: make(map[string][]string, len(byService)),
	}
	for service, args := range byService {
		c.Services = append(c.Services, service)
		c.Required[service] = slices.Clone(args)
	}
	sort.Strings(c.Services)
	return c, true
}

// Services returns every service name in the table, sorted.
func (b *Base) Services() []string {
	return slices.Clone(b.services)
}

// HasService reports whether the service appears anywhere in the table.
func (b *Base) HasService(name string) bool {
	_, found := slices.BinarySearch(b.services, name)
	return found
}

// UnknownServices returns the names absent from the table, in input order.
func (b *Base) UnknownServices(names []string) []string {
	var unknown []string
	for _, n := range names {
		if !b.HasService(n) {
			unknown = append(unknown, n)
		}
	}
	return unknown
}

// MethodsFor returns the methods a service defines with their required arguments.
func (b *Base) MethodsFor(service string) map[string][]string {
	out := make(map[string][]string)
	for method, byService := range b.methods {
		if args, ok := byService[service]; ok {
			out[method] = slices.Clone(args)
		}
	}
	return out
}

// Len returns the number of distinct methods.
func (b *Base) Len() int {
	return len(b.methods)
}

// Fingerprint identifies the table content.
func (b *Base) Fingerprint() string {
	return b.fingerprint
}

// Contains reports whether the service is one of the candidates.
func (c Candidates) Contains(service string) bool {
	_, ok := c.Required[service]
	return ok
}
