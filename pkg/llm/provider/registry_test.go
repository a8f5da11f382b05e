package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
	testutils "github.com/xiaomiproject/aikefu/pkg/utils/test"
)

var _ = Describe("Registry", func() {
	var (
		deepseek *testutils.MockProvider
		qwen     *testutils.MockProvider
	)

	BeforeEach(func() {
		deepseek = testutils.NewMockProvider("deepseek-chat", "ds")
		qwen = testutils.NewMockProvider("qwen-plus", "qw")
	})

	Describe("NewRegistry", func() {
		It("fails fast when the default model is not registered", func() {
			_, err := provider.NewRegistry("gpt-5", map[string]provider.Provider{
				"deepseek-chat": deepseek,
			})
			Expect(err).To(MatchError(provider.ErrDefaultProviderMissing))
		})

		It("fails on an empty registration set", func() {
			_, err := provider.NewRegistry("deepseek-chat", nil)
			Expect(err).To(MatchError(provider.ErrDefaultProviderMissing))
		})

		It("rejects nil providers", func() {
			_, err := provider.NewRegistry("deepseek-chat", map[string]provider.Provider{
				"deepseek-chat": nil,
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Resolve", func() {
		var r *provider.Registry

		BeforeEach(func() {
			var err error
			r, err = provider.NewRegistry("deepseek-chat", map[string]provider.Provider{
				"deepseek-chat": deepseek,
				"qwen-plus":     qwen,
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the explicitly requested provider", func() {
			Expect(r.Resolve("qwen-plus")).To(BeIdenticalTo(qwen))
		})

		It("falls back to the default for an unregistered model", func() {
			Expect(r.Resolve("gpt-5")).To(BeIdenticalTo(deepseek))
		})

		It("falls back to the default for an empty model", func() {
			Expect(r.Resolve("")).To(BeIdenticalTo(deepseek))
			Expect(r.Resolve("   ")).To(BeIdenticalTo(deepseek))
		})

		It("lists models and the default", func() {
			Expect(r.Models()).To(Equal([]string{"deepseek-chat", "qwen-plus"}))
			Expect(r.Default()).To(Equal("deepseek-chat"))
		})
	})

	Describe("Register", func() {
		It("adds providers after construction and rejects duplicates", func() {
			r, err := provider.NewRegistry("deepseek-chat", map[string]provider.Provider{
				"deepseek-chat": deepseek,
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(r.Register("qwen-plus", qwen)).To(Succeed())
			Expect(r.Resolve("qwen-plus")).To(BeIdenticalTo(qwen))

			Expect(r.Register("qwen-plus", qwen)).To(MatchError(provider.ErrDuplicateModel))
			Expect(r.Register("", qwen)).NotTo(Succeed())
		})
	})
})
