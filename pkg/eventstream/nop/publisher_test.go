package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/eventstream"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/nop"
)

var _ eventstream.Publisher = (*nop.Publisher)(nil)

var _ = Describe("Publisher", func() {
	var p *nop.Publisher

	BeforeEach(func() {
		p = nop.NewPublisher()
	})

	It("rejects a nil answer", func() {
		Expect(p.PublishAnswer(context.Background(), nil)).To(MatchError(eventstream.ErrNilAnswerEvent))
	})

	It("accepts answers from every source and keeps accepting after Close", func() {
		for _, source := range []string{"cache", "knowledge", "llm", "fallback"} {
			ev := &eventstream.AnswerResolvedEvent{
				SchemaVersion: eventstream.SchemaVersionV1,
				EventType:     eventstream.EventTypeAnswerResolved,
				UserID:        "u-1",
				Question:      "怎么退货",
				Source:        source,
			}
			Expect(p.PublishAnswer(context.Background(), ev)).To(Succeed())
		}

		Expect(p.Close()).To(Succeed())
		Expect(p.PublishAnswer(context.Background(), &eventstream.AnswerResolvedEvent{})).To(Succeed())
	})
})
