package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDirectiveArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		expected []string
		err      error
	}{
		{name: "empty", args: "", expected: nil},
		{name: "blank", args: "   ", expected: nil},
		{name: "single service", args: "services = sqs", expected: []string{"sqs"}},
		{name: "several services", args: "services = sqs, sns,ses", expected: []string{"sqs", "sns", "ses"}},
		{name: "sdk keyword", args: "sdk = sqs", expected: []string{"sqs"}},
		{name: "trailing comma", args: "services = s3,", expected: []string{"s3"}},
		{name: "unknown keyword", args: "service = sqs", err: errOnlyServices},
		{name: "no keyword", args: "= sqs", err: errOnlyServices},
		{name: "missing equals", args: "services sqs", err: errExpectedEquals},
		{name: "no services", args: "services =", err: errExpectedServices},
		{name: "empty element", args: "services = sqs,,s3", err: errExpectedServices},
		{name: "not an identifier", args: "services = sqs s3", err: errExpectedServices},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			services, err := parseDirectiveArgs(tc.args)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, services)
		})
	}
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"SendMessage":  "send_message",
		"QueueUrl":     "queue_url",
		"QueueURL":     "queue_url",
		"sqsClient":    "sqs_client",
		"SQSClient":    "sqs_client",
		"s3Client":     "s3_client",
		"Do":           "do",
		"GetObjectV2":  "get_object_v2",
		"already_done": "already_done",
		"x":            "x",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, snakeCase(in), in)
	}
}

func TestImportName(t *testing.T) {
	assert.Equal(t, "sqs", importName("github.com/aws/aws-sdk-go-v2/service/sqs"))
	assert.Equal(t, "chi", importName("github.com/go-chi/chi/v5"))
	assert.Equal(t, "go_diff", importName("example.com/go-diff"))
}
