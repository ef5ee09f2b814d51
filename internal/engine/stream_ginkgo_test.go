package engine

import (
	"io"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cloudwego/eino/schema"

	"github.com/aibridge-dev/aibridge/pkg/types"
)

func TestEngineSuite(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Engine Suite")
}

// drain reads every event from a stream until EOF.
func drain(s *chatStream) []types.StreamEvent {
	var events []types.StreamEvent
	for {
		ev, err := s.Recv()
		if err == io.EOF {
			return events
		}
		Expect(err).NotTo(HaveOccurred())
		events = append(events, ev)
	}
}

var _ = Describe("chatStream", func() {
	var eng *ChatEngine

	BeforeEach(func() {
		eng = &ChatEngine{}
	})

	It("translates content chunks into deltas followed by a finished event", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, Content: "Hel"},
			{Role: schema.Assistant, Content: "lo"},
			{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{
				FinishReason: "stop",
				Usage:        &schema.TokenUsage{PromptTokens: 10, CompletionTokens: 2, TotalTokens: 12},
			}},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), nil)

		events := drain(s)
		Expect(events).To(HaveLen(3))

		Expect(events[0]).To(Equal(&types.ContentDeltaEvent{Type: "content", Text: "Hel"}))
		Expect(events[1]).To(Equal(&types.ContentDeltaEvent{Type: "content", Text: "lo"}))

		fin, ok := events[2].(*types.FinishedEvent)
		Expect(ok).To(BeTrue())
		Expect(fin.Reason).To(Equal("stop"))
		Expect(fin.Usage.Total).To(Equal(12))
	})

	It("records the accumulated answer to history at end of stream", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, Content: "answer"},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), nil)
		drain(s)

		history := eng.History(false)
		Expect(history).To(HaveLen(1))
		Expect(history[0].Role).To(Equal(string(schema.Assistant)))
		Expect(history[0].Text).To(Equal("answer"))
	})

	It("does not record an empty turn", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"}},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), nil)
		drain(s)

		Expect(eng.History(false)).To(BeEmpty())
	})

	It("translates reasoning content into thought events", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, ReasoningContent: "Planning the fix\nFirst, look at the parser."},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), nil)

		events := drain(s)
		thought, ok := events[0].(*types.ThoughtEvent)
		Expect(ok).To(BeTrue())
		Expect(thought.Subject).To(Equal("Planning the fix"))
		Expect(thought.Description).To(Equal("First, look at the parser."))
	})

	It("emits one tool call request per call ID", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
				{ID: "call-1", Function: schema.FunctionCall{Name: "read_file", Arguments: `{"path":"a.go"}`}},
			}},
			{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
				{ID: "call-1", Function: schema.FunctionCall{Name: "read_file", Arguments: `{"path":"a.go"}`}},
			}},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), nil)

		events := drain(s)
		var requests []*types.ToolCallRequestEvent
		for _, ev := range events {
			if req, ok := ev.(*types.ToolCallRequestEvent); ok {
				requests = append(requests, req)
			}
		}
		Expect(requests).To(HaveLen(1))
		Expect(requests[0].Name).To(Equal("read_file"))
		Expect(requests[0].Args["path"]).To(Equal("a.go"))
	})

	It("delivers queued retry events before stream chunks", func() {
		chunks := []*schema.Message{
			{Role: schema.Assistant, Content: "ok"},
		}
		pending := []types.StreamEvent{
			&types.RetryEvent{Type: "retry", Attempt: 1, Cause: "overloaded"},
		}
		s := newChatStream(eng, schema.StreamReaderFromArray(chunks), pending)

		events := drain(s)
		_, ok := events[0].(*types.RetryEvent)
		Expect(ok).To(BeTrue())
		_, ok = events[1].(*types.ContentDeltaEvent)
		Expect(ok).To(BeTrue())
	})
})

var _ = Describe("splitThought", func() {
	It("splits subject from description at the first newline", func() {
		subject, description := splitThought("Subject line\nrest of the\nthought")
		Expect(subject).To(Equal("Subject line"))
		Expect(description).To(Equal("rest of the\nthought"))
	})

	It("uses the whole text as subject when single-line", func() {
		subject, description := splitThought("  just a subject  ")
		Expect(subject).To(Equal("just a subject"))
		Expect(description).To(BeEmpty())
	})
})
