package llm_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/xiaomiproject/aikefu/pkg/llm"
)

var _ = Describe("chat wire types", func() {
	It("builds a single user turn request", func() {
		req := llm.NewQuestionRequest("deepseek-chat", "hello?", true)
		Expect(req.Model).To(Equal("deepseek-chat"))
		Expect(req.Stream).To(BeTrue())
		Expect(req.Messages).To(Equal([]llm.Message{{Role: llm.RoleUser, Content: "hello?"}}))
	})

	Describe("ChatResponse.Answer", func() {
		It("returns the first choice", func() {
			resp := &llm.ChatResponse{Choices: []llm.Choice{
				{Message: llm.Message{Role: llm.RoleAssistant, Content: "first"}},
				{Message: llm.Message{Role: llm.RoleAssistant, Content: "second"}},
			}}
			Expect(resp.Answer()).To(Equal("first"))
		})

		It("fails without choices", func() {
			_, err := (&llm.ChatResponse{}).Answer()
			Expect(err).To(MatchError(llm.ErrEmptyCompletion))

			var nilResp *llm.ChatResponse
			_, err = nilResp.Answer()
			Expect(err).To(MatchError(llm.ErrEmptyCompletion))
		})
	})

	Describe("framing", func() {
		It("frames a payload as one data event", func() {
			Expect(string(llm.FrameData([]byte(`{"a":1}`)))).To(Equal("data: {\"a\":1}\n\n"))
		})

		It("frames content as a delta chunk", func() {
			frame, err := llm.FrameDelta("qwen-turbo", "Hi")
			Expect(err).NotTo(HaveOccurred())
			Expect(bytes.HasPrefix(frame, []byte(llm.DataPrefix+" "))).To(BeTrue())
			Expect(bytes.HasSuffix(frame, []byte("\n\n"))).To(BeTrue())

			body := bytes.TrimSpace(bytes.TrimPrefix(frame, []byte(llm.DataPrefix)))
			Expect(gjson.GetBytes(body, "model").String()).To(Equal("qwen-turbo"))
			Expect(gjson.GetBytes(body, "choices.0.delta.content").String()).To(Equal("Hi"))
			Expect(gjson.GetBytes(body, "choices.0.delta.role").String()).To(Equal(llm.RoleAssistant))
		})
	})
})
