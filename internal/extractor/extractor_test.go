package extractor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reqprops/internal/syntax"
)

func extractFixture(t *testing.T, dialect syntax.Dialect, name string) map[string]*syntax.Function {
	t.Helper()

	ext, err := NewExtractor(dialect)
	require.NoError(t, err)

	functions, err := ext.ExtractFromFile(context.Background(), filepath.Join("testdata", name))
	require.NoError(t, err)

	byName := make(map[string]*syntax.Function)
	for _, fn := range functions {
		byName[fn.Name] = fn
	}
	return byName
}

func methodCalls(body []syntax.Expr) []*syntax.MethodCall {
	var calls []*syntax.MethodCall
	syntax.Inspect(body, func(e syntax.Expr) bool {
		if mc, ok := e.(*syntax.MethodCall); ok {
			calls = append(calls, mc)
		}
		return true
	})
	return calls
}

func lets(body []syntax.Expr) map[string]*syntax.Let {
	out := make(map[string]*syntax.Let)
	syntax.Inspect(body, func(e syntax.Expr) bool {
		if l, ok := e.(*syntax.Let); ok && l.Name != "" {
			out[l.Name] = l
		}
		return true
	})
	return out
}

func TestNewExtractor_UnsupportedLanguage(t *testing.T) {
	_, err := NewExtractor(syntax.Dialect{Language: "cobol"})
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestRustExtractor(t *testing.T) {
	functions := extractFixture(t, syntax.RustDialect(), "queues.rs")

	t.Run("Overall Count", func(t *testing.T) {
		assert.Len(t, functions, 6, "poll, publish, drain, helper, broken, unmarked")
		for _, fn := range functions {
			assert.Equal(t, syntax.LanguageRust, fn.Language)
		}
	})

	t.Run("Method On Named Field", func(t *testing.T) {
		fn, ok := functions["poll"]
		require.True(t, ok)
		require.True(t, fn.Marked())
		assert.Empty(t, fn.Services())
		assert.Empty(t, fn.Params, "self is not a typed parameter")

		calls := methodCalls(fn.Body)
		require.NotEmpty(t, calls)
		var receive *syntax.MethodCall
		for _, c := range calls {
			if c.Method == "receive_message" {
				receive = c
			}
		}
		require.NotNil(t, receive)
		field, ok := receive.Receiver.(*syntax.Field)
		require.True(t, ok)
		assert.True(t, field.Named)
		assert.Equal(t, "sqs_client", field.Name)
		assert.Equal(t, 10, receive.Location.Line)
	})

	t.Run("Parameters And Services", func(t *testing.T) {
		fn, ok := functions["publish"]
		require.True(t, ok)
		assert.Equal(t, []string{"sqs", "sns"}, fn.Services())
		require.Len(t, fn.Params, 2)
		assert.Equal(t, "queue_url", fn.Params[0].Name)
		assert.Equal(t, "client", fn.Params[1].Name)
		assert.Equal(t, []string{"aws_sdk_sqs", "Client"}, fn.Params[1].TypePath)
	})

	t.Run("Locals Closures And Nested Items", func(t *testing.T) {
		fn, ok := functions["drain"]
		require.True(t, ok)
		assert.Equal(t, []string{"sqs"}, fn.Services())

		locals := lets(fn.Body)
		require.Contains(t, locals, "queue_client")
		call, ok := locals["queue_client"].Init.(*syntax.Call)
		require.True(t, ok)
		path, ok := call.Callee.(*syntax.Path)
		require.True(t, ok)
		assert.Equal(t, []string{"aws_sdk_sqs", "Client", "new"}, path.Segments)

		var methods []string
		for _, c := range methodCalls(fn.Body) {
			methods = append(methods, c.Method)
			if p, ok := c.Receiver.(*syntax.Path); ok {
				assert.NotEqual(t, "other", p.Last(), "nested fn bodies belong to their own function")
			}
		}
		assert.Contains(t, methods, "delete_message", "calls inside closures are kept")

		helper, ok := functions["helper"]
		require.True(t, ok)
		assert.False(t, helper.Marked())
		assert.Len(t, methodCalls(helper.Body), 1)
	})

	t.Run("Malformed Directive", func(t *testing.T) {
		fn, ok := functions["broken"]
		require.True(t, ok)
		require.NotNil(t, fn.Directive)
		assert.ErrorIs(t, fn.Directive.Err, errExpectedEquals)
	})

	t.Run("Unnamed Field Receiver", func(t *testing.T) {
		fn, ok := functions["unmarked"]
		require.True(t, ok)
		assert.False(t, fn.Marked())

		calls := methodCalls(fn.Body)
		require.Len(t, calls, 2)
		var sendMessage *syntax.MethodCall
		for _, c := range calls {
			if c.Method == "send_message" {
				sendMessage = c
			}
		}
		require.NotNil(t, sendMessage)
		field, ok := sendMessage.Receiver.(*syntax.Field)
		require.True(t, ok)
		assert.False(t, field.Named)
	})
}

func TestGoExtractor(t *testing.T) {
	functions := extractFixture(t, syntax.GoDialect(), "queues.go")

	t.Run("Overall Count", func(t *testing.T) {
		assert.Len(t, functions, 5, "Poll, Fetch, Drain, Publish, Unmarked")
	})

	t.Run("Method Chain Is Snake Cased", func(t *testing.T) {
		fn, ok := functions["Poll"]
		require.True(t, ok)
		require.True(t, fn.Marked())
		require.Len(t, fn.Params, 1)
		assert.Equal(t, []string{"context", "Context"}, fn.Params[0].TypePath)

		var names []string
		for _, c := range methodCalls(fn.Body) {
			names = append(names, c.Method)
		}
		assert.Equal(t, []string{"do", "queue_url", "receive_message"}, names)

		innermost := methodCalls(fn.Body)[2]
		field, ok := innermost.Receiver.(*syntax.Field)
		require.True(t, ok)
		assert.Equal(t, "sqs_client", field.Name)
	})

	t.Run("Aliased Import In Parameter Type", func(t *testing.T) {
		fn, ok := functions["Fetch"]
		require.True(t, ok)
		assert.Equal(t, []string{"s3"}, fn.Services())
		require.Len(t, fn.Params, 2)
		assert.Equal(t, []string{"github.com/aws/aws-sdk-go-v2/service/s3", "Client"}, fn.Params[0].TypePath)
		assert.Equal(t, "bucket", fn.Params[1].Name)
	})

	t.Run("Package Constructor", func(t *testing.T) {
		fn, ok := functions["Drain"]
		require.True(t, ok)

		locals := lets(fn.Body)
		require.Contains(t, locals, "queue_client")
		require.Contains(t, locals, "n")

		call, ok := locals["queue_client"].Init.(*syntax.Call)
		require.True(t, ok)
		path, ok := call.Callee.(*syntax.Path)
		require.True(t, ok)
		assert.Equal(t, []string{"github.com/aws/aws-sdk-go-v2/service/sqs", "NewFromConfig"}, path.Segments)
	})

	t.Run("Input Literal Keys Become Setters", func(t *testing.T) {
		fn, ok := functions["Publish"]
		require.True(t, ok)

		var names []string
		for _, c := range methodCalls(fn.Body) {
			names = append(names, c.Method)
		}
		assert.Equal(t, []string{"do", "message_body", "queue_url", "send_message"}, names)

		calls := methodCalls(fn.Body)
		anchor := calls[3]
		receiver, ok := anchor.Receiver.(*syntax.Path)
		require.True(t, ok)
		assert.Equal(t, "client", receiver.Last())
		assert.Equal(t, 40, calls[2].Location.Line, "setters point at their key")
	})

	t.Run("Unmarked", func(t *testing.T) {
		fn, ok := functions["Unmarked"]
		require.True(t, ok)
		assert.False(t, fn.Marked())
	})
}

func TestExtractFromSource_Directives(t *testing.T) {
	ext, err := NewExtractor(syntax.RustDialect())
	require.NoError(t, err)

	src := []byte(`
#[tokio::main]
// comment between attributes
#[aws_sdk_compile_checks_macro::required_props(sdk = sqs, s3,)]
async fn main() {}
`)
	functions, err := ext.ExtractFromSource(context.Background(), "main.rs", src)
	require.NoError(t, err)
	require.Len(t, functions, 1)
	require.NotNil(t, functions[0].Directive)
	assert.NoError(t, functions[0].Directive.Err)
	assert.Equal(t, []string{"sqs", "s3"}, functions[0].Services())
	assert.Equal(t, 4, functions[0].Directive.Location.Line)
}

func TestLanguageForPath(t *testing.T) {
	lang, ok := LanguageForPath("src/lib.rs")
	assert.True(t, ok)
	assert.Equal(t, syntax.LanguageRust, lang)

	lang, ok = LanguageForPath("main.go")
	assert.True(t, ok)
	assert.Equal(t, syntax.LanguageGo, lang)

	_, ok = LanguageForPath("README.md")
	assert.False(t, ok)

	ext, err := NewExtractor(syntax.GoDialect())
	require.NoError(t, err)
	assert.True(t, ext.Handles("x/y.go"))
	assert.False(t, ext.Handles("x/y.rs"))
}
