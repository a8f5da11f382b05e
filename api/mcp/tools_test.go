package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/cache"
	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
	aikefulogger "github.com/xiaomiproject/aikefu/pkg/logger"
	"github.com/xiaomiproject/aikefu/pkg/resolve"
	"github.com/xiaomiproject/aikefu/pkg/storage/inmemory"
	testutils "github.com/xiaomiproject/aikefu/pkg/utils/test"
)

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("Tools", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		config Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()

		registry, err := provider.NewRegistry("mock-model", map[string]provider.Provider{
			"mock-model": testutils.NewMockProvider("mock-model", "from the model"),
		})
		Expect(err).NotTo(HaveOccurred())

		pipeline, err := resolve.New(resolve.Config{
			Cache:     cache.NewMemory(),
			Knowledge: driver,
			History:   driver,
			Registry:  registry,
		})
		Expect(err).NotTo(HaveOccurred())

		config = Config{Pipeline: pipeline, History: driver, Logger: aikefulogger.Nop()}
	})

	Describe("ask", func() {
		It("answers from the knowledge base and records history for the caller", func() {
			_, err := driver.PutKnowledge(ctx, knowledge.Entry{Question: "hours?", Answer: "9 to 5"})
			Expect(err).NotTo(HaveOccurred())

			t := &tools{config: config, userID: "user-1"}
			res, out, err := t.handleAsk(ctx, nil, AskInput{Question: "hours?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Answer).To(Equal("9 to 5"))
			Expect(out.Source).To(Equal(resolve.SourceKnowledge))
			Expect(out.ConversationID).NotTo(BeEmpty())

			var decoded AskOutput
			Expect(json.Unmarshal([]byte(resultText(res)), &decoded)).To(Succeed())
			Expect(decoded).To(Equal(out))

			records, err := driver.ListHistoryByUser(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
		})

		It("falls through to the model", func() {
			t := &tools{config: config, userID: "user-1"}
			_, out, err := t.handleAsk(ctx, nil, AskInput{Question: "something new"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Answer).To(Equal("from the model"))
			Expect(out.Source).To(Equal(resolve.SourceLLM))
			Expect(out.Model).To(Equal("mock-model"))
		})

		It("reports an unauthenticated caller as a tool error", func() {
			t := &tools{config: config}
			res, _, err := t.handleAsk(ctx, nil, AskInput{Question: "hours?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("Failed to answer question"))
		})

		It("reports an empty question as a tool error", func() {
			t := &tools{config: config, userID: "user-1"}
			res, _, err := t.handleAsk(ctx, nil, AskInput{Question: "   "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("list_conversations", func() {
		It("lists only the caller's conversations, newest first", func() {
			base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			for i, r := range []*history.Record{
				{UserID: "user-1", ConversationID: "c1", Question: "first", Answer: "a", CreatedAt: base},
				{UserID: "user-1", ConversationID: "c1", Question: "follow-up", Answer: "b", CreatedAt: base.Add(time.Minute)},
				{UserID: "user-1", ConversationID: "c2", Question: "second", Answer: "c", CreatedAt: base.Add(time.Hour)},
				{UserID: "user-2", ConversationID: "c3", Question: "other", Answer: "d", CreatedAt: base},
			} {
				Expect(driver.AppendHistory(ctx, r)).To(Succeed(), "record %d", i)
			}

			t := &tools{config: config, userID: "user-1"}
			res, out, err := t.handleListConversations(ctx, nil, ListConversationsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(2))
			Expect(out.Conversations[0].ConversationID).To(Equal("c2"))
			Expect(out.Conversations[1].ConversationID).To(Equal("c1"))
			Expect(out.Conversations[1].Question).To(Equal("first"))
		})

		It("returns an empty list for a new user", func() {
			t := &tools{config: config, userID: "nobody"}
			_, out, err := t.handleListConversations(ctx, nil, ListConversationsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(0))
			Expect(out.Conversations).To(BeEmpty())
		})

		It("rejects a request without a user", func() {
			t := &tools{config: config}
			res, _, err := t.handleListConversations(ctx, nil, ListConversationsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
