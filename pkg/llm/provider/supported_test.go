package provider_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
	testutils "github.com/xiaomiproject/aikefu/pkg/utils/test"
)

var _ = Describe("New", func() {
	It("builds an openai-compatible client for the deepseek alias", func() {
		p, err := provider.New(provider.Config{
			Type:     provider.DeepSeek,
			Model:    "deepseek-chat",
			Endpoint: "https://api.deepseek.com/chat/completions",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("openai-compatible"))
		Expect(p.Model()).To(Equal("deepseek-chat"))
	})

	It("builds an ollama client", func() {
		p, err := provider.New(provider.Config{Type: provider.Ollama, Model: "qwen2.5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("ollama"))
	})

	It("builds an openai client", func() {
		p, err := provider.New(provider.Config{Type: provider.OpenAI, Model: "gpt-4o-mini", APIKey: "sk"})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Name()).To(Equal("openai"))
	})

	It("rejects unknown types", func() {
		_, err := provider.New(provider.Config{Type: "carrier-pigeon", Model: "m"})
		Expect(err).To(MatchError(ContainSubstring("unknown provider type")))
	})

	It("rejects a missing model", func() {
		_, err := provider.New(provider.Config{Type: provider.Ollama})
		Expect(err).To(HaveOccurred())
	})

	It("lists supported types", func() {
		Expect(provider.SupportedTypes()).To(ContainElements("openai-compatible", "openai", "ollama"))
	})
})

var _ = Describe("WithRateLimit", func() {
	It("returns the provider unchanged when unlimited", func() {
		p := testutils.NewMockProvider("m", "a")
		Expect(provider.WithRateLimit(p, 0)).To(BeIdenticalTo(p))
	})

	It("allows a burst up to the per-minute budget then waits", func() {
		p := testutils.NewMockProvider("m", "a")
		limited := provider.WithRateLimit(p, 2)

		ctx := context.Background()
		_, err := limited.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		_, err = limited.Stream(ctx, "two")
		Expect(err).NotTo(HaveOccurred())

		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err = limited.Complete(short, "three")
		Expect(err).To(HaveOccurred())
		Expect(p.Calls()).To(Equal(2))
	})
})

var _ = Describe("NewHTTPClient", func() {
	It("sets no overall timeout", func() {
		c := provider.NewHTTPClient(time.Second, 2*time.Second)
		Expect(c.Timeout).To(BeZero())
	})
})
