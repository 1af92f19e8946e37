package analysis

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reqprops/internal/clients"
	"reqprops/internal/knowledge"
	"reqprops/internal/recorder"
	"reqprops/internal/resolver"
	"reqprops/internal/syntax"
)

func kb(t *testing.T, table string) *knowledge.Base {
	t.Helper()
	b, err := knowledge.Parse(strings.NewReader(table))
	require.NoError(t, err)
	return b
}

func newEngine(b *knowledge.Base, policy AmbiguityPolicy) *Engine {
	return NewEngine(b, resolver.NewDefaultChain(resolver.StripClientMatcher{}), policy, nil)
}

// evaluated builds call sites in evaluation order and returns them in
// recording order, the way the recorder produces them.
func evaluated(calls ...recorder.CallSite) []recorder.CallSite {
	for i := range calls {
		calls[i].Location = syntax.Location{File: "lib.rs", Line: i + 1, Column: 1}
	}
	out := slices.Clone(calls)
	slices.Reverse(out)
	return out
}

func c(method string) recorder.CallSite {
	return recorder.CallSite{Method: method}
}

func on(receiver, method string) recorder.CallSite {
	return recorder.CallSite{Method: method, Receiver: receiver}
}

func hints(hs ...clients.Hint) clients.Set {
	s := make(clients.Set)
	for _, h := range hs {
		s.Add(h)
	}
	return s
}

func TestEngine_UnknownMethodsYieldNothing(t *testing.T) {
	e := newEngine(kb(t, "sqs,send_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(c("iter"), c("map"), c("collect"), c("send")),
		Terminal: "send",
	})
	assert.Empty(t, findings)
}

func TestEngine_SingleServiceIgnoresHints(t *testing.T) {
	e := newEngine(kb(t, "s3,get_object,bucket key\nsqs,send_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(c("get_object"), c("key"), c("send")),
		Hints:    hints(clients.Hint{Binding: "sqs_client", Service: "sqs"}),
		Selected: []string{"sqs"},
		Terminal: "send",
	})

	require.Len(t, findings, 1)
	assert.Equal(t, KindMissing, findings[0].Kind)
	assert.Equal(t, "s3", findings[0].Service)
	assert.Equal(t, []string{"bucket"}, findings[0].Missing)
	assert.Equal(t, "single-service", findings[0].ResolvedBy)
}

func TestEngine_IdenticalRequirementsLabel(t *testing.T) {
	e := newEngine(kb(t, "sqs,tag_resource,resource_arn\ns3,tag_resource,resource_arn\n"), AmbiguityStop)

	findings := e.Check(Input{Calls: evaluated(c("tag_resource"), c("send")), Terminal: "send"})

	require.Len(t, findings, 1)
	assert.Equal(t, "s3,sqs", findings[0].Service)
	assert.Equal(t, []string{"resource_arn"}, findings[0].Missing)
}

func TestEngine_ReceiverNameResolves(t *testing.T) {
	e := newEngine(kb(t, "s3,send_message,bucket\nsqs,send_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(on("sqs_client", "send_message"), c("send")),
		Terminal: "send",
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "sqs", findings[0].Service)
	assert.Equal(t, []string{"queue_url"}, findings[0].Missing)
}

func TestEngine_SelectedServicesPickTheOnlyCandidate(t *testing.T) {
	e := newEngine(kb(t, "s3,send_message,bucket\nsqs,send_message,queue_url message_body\nsns,publish,topic_arn\nses,send_email,destination\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(on("client", "send_message"), c("queue_url"), c("message_body"), c("send")),
		Hints:    hints(clients.Hint{Binding: "client"}),
		Selected: []string{"sqs", "sns", "ses"},
		Terminal: "send",
	})
	assert.Empty(t, findings, "sqs requirements are satisfied")

	findings = e.Check(Input{
		Calls:    evaluated(on("client", "send_message"), c("send")),
		Hints:    hints(clients.Hint{Binding: "client"}),
		Selected: []string{"sqs", "sns", "ses"},
		Terminal: "send",
	})
	require.Len(t, findings, 1)
	assert.Equal(t, "sqs", findings[0].Service)
	assert.Equal(t, "selected-services", findings[0].ResolvedBy)
}

func TestEngine_OnlyMissingArgumentsReported(t *testing.T) {
	e := newEngine(kb(t, "s3,send_message,required_call required_call_that_is_missing\n"), AmbiguityStop)

	// recording order: unknown, required_call, send_message, other_unknown
	calls := []recorder.CallSite{c("unknown"), c("required_call"), c("send_message"), c("other_unknown")}
	findings := e.Check(Input{Calls: calls, Terminal: "send"})

	require.Len(t, findings, 1)
	assert.Equal(t, "send_message", findings[0].Method)
	assert.Equal(t, []string{"required_call_that_is_missing"}, findings[0].Missing)
}

func TestEngine_TwoAnchorsInSourceOrder(t *testing.T) {
	e := newEngine(kb(t, "sqs,send_message,queue_url message_body\nsqs,receive_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls: evaluated(
			c("other_unknown"), c("send_message"), c("message_body"), c("send"),
			c("unknown"), c("receive_message"), c("max_number_of_messages"), c("send"),
		),
		Terminal: "send",
	})

	require.Len(t, findings, 2)
	assert.Equal(t, "send_message", findings[0].Method)
	assert.Equal(t, []string{"queue_url"}, findings[0].Missing)
	assert.Equal(t, "receive_message", findings[1].Method)
	assert.Equal(t, []string{"queue_url"}, findings[1].Missing)
	assert.True(t, findings[0].Location.Less(findings[1].Location))
}

func TestEngine_WindowEndsAtNextRelevantCall(t *testing.T) {
	e := newEngine(kb(t, "sqs,send_message,queue_url\nsqs,receive_message,queue_url\n"), AmbiguityStop)

	// receive_message().send_message().queue_url(): the argument belongs to send_message.
	findings := e.Check(Input{
		Calls:    evaluated(c("receive_message"), c("send_message"), c("queue_url"), c("send")),
		Terminal: "send",
	})

	require.Len(t, findings, 1)
	assert.Equal(t, "receive_message", findings[0].Method)
}

func TestEngine_TerminalEndsWindow(t *testing.T) {
	e := newEngine(kb(t, "sqs,receive_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(c("receive_message"), c("queue_url"), c("send"), c("receive_message"), c("send")),
		Terminal: "send",
	})

	require.Len(t, findings, 1)
	assert.Equal(t, 4, findings[0].Location.Line, "the second call does not see the first call's arguments")
}

func TestEngine_AmbiguityStopsTheFunction(t *testing.T) {
	table := "evidently,create_project,name\nrekognition,create_project,project_name\nsqs,send_message,queue_url\n"
	calls := evaluated(c("create_project"), c("send"), c("send_message"), c("send"))

	findings := newEngine(kb(t, table), AmbiguityStop).Check(Input{Calls: calls, Terminal: "send"})
	require.Len(t, findings, 1)
	assert.Equal(t, KindAmbiguous, findings[0].Kind)
	assert.Equal(t, []string{"evidently", "rekognition"}, findings[0].Candidates)

	findings = newEngine(kb(t, table), AmbiguitySkip).Check(Input{Calls: calls, Terminal: "send"})
	require.Len(t, findings, 2)
	assert.Equal(t, KindAmbiguous, findings[0].Kind)
	assert.Equal(t, KindMissing, findings[1].Kind)
	assert.Equal(t, "send_message", findings[1].Method)
}

func TestEngine_UnknownReceiverIsIgnored(t *testing.T) {
	e := newEngine(kb(t, "sqs,receive_message,queue_url\n"), AmbiguityStop)

	findings := e.Check(Input{
		Calls:    evaluated(on("other_client", "receive_message"), c("send")),
		Hints:    hints(clients.Hint{Binding: "sqs_client", Service: "sqs"}),
		Terminal: "send",
	})
	assert.Empty(t, findings)

	findings = e.Check(Input{
		Calls:    evaluated(on("sqs_client", "receive_message"), c("send")),
		Hints:    hints(clients.Hint{Binding: "sqs_client", Service: "sqs"}),
		Terminal: "send",
	})
	assert.Len(t, findings, 1)
}

func TestEngine_MethodNamedLikeTerminalTerminates(t *testing.T) {
	e := newEngine(kb(t, "mail,send,recipient\n"), AmbiguityStop)

	findings := e.Check(Input{Calls: evaluated(c("send"), c("send"), c("send")), Terminal: "send"})
	assert.Len(t, findings, 2)
}

func TestEngine_Idempotent(t *testing.T) {
	table := "s3,send_message,bucket\nsqs,send_message,queue_url\nsns,send_message,topic_arn\n"
	input := func(order []clients.Hint) Input {
		return Input{
			Calls: evaluated(on("client", "send_message"), c("send"), on("client", "send_message"), c("send")),
			Hints: hints(order...),
		}
	}
	a := []clients.Hint{{Binding: "client", Service: "sns"}, {Binding: "client", Service: "sqs"}}
	b := []clients.Hint{{Binding: "client", Service: "sqs"}, {Binding: "client", Service: "sns"}}

	first := newEngine(kb(t, table), AmbiguityStop).Check(input(a))
	second := newEngine(kb(t, table), AmbiguityStop).Check(input(b))

	require.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, "sqs", first[0].Service, "last hint in (binding, service) order")
}

func TestSegmenter_Segments(t *testing.T) {
	s := NewSegmenter(kb(t, "sqs,send_message,queue_url\nsqs,receive_message,queue_url\n"), "send")

	segments := s.Segments([]recorder.CallSite{
		c("new"), c("send_message"), c("queue_url"), c("send"), c("await"),
		c("receive_message"), c("receive_message"), c("queue_url"),
	})

	require.Len(t, segments, 2)
	assert.Equal(t, []string{"send_message", "queue_url", "send"}, recorder.Methods(segments[0].Window))
	assert.Equal(t, []string{"receive_message", "receive_message", "queue_url"}, recorder.Methods(segments[1].Window))
	assert.Contains(t, segments[0].Supplied(), "queue_url")
}

func TestEngine_AnchorMissingFromKnowledgeBasePanics(t *testing.T) {
	e := newEngine(kb(t, "sqs,send_message,queue_url\n"), AmbiguityStop)

	assert.NotPanics(t, func() { e.anchorCandidates(on("client", "send_message")) })
	assert.PanicsWithValue(t, `analysis: anchor "publish" is not in the knowledge base`, func() {
		e.anchorCandidates(on("client", "publish"))
	})
}
