package credentials_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		dir string
		mgr *credentials.Manager
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
		credentials.SetClock(mgr, func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) })
	})

	It("keeps credentials.toml in the override directory", func() {
		Expect(mgr.Path()).To(Equal(filepath.Join(dir, "credentials.toml")))
	})

	It("returns nothing before any key is stored", func() {
		Expect(mgr.Get("deepseek")).To(BeEmpty())
		Expect(mgr.Entries()).To(BeEmpty())
		_, err := os.Stat(mgr.Path())
		Expect(os.IsNotExist(err)).To(BeTrue())
	})

	Describe("Set", func() {
		It("stores a trimmed key with owner-only permissions", func() {
			Expect(mgr.Set("DeepSeek", "  sk-deep-123456  ")).To(Succeed())

			Expect(mgr.Get("deepseek")).To(Equal("sk-deep-123456"))
			info, err := os.Stat(mgr.Path())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("writes the versioned layout", func() {
			Expect(mgr.Set("openai", "sk-open-abcdefgh")).To(Succeed())

			data, err := os.ReadFile(mgr.Path())
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring("version = 1"))
			Expect(string(data)).To(ContainSubstring("[keys.openai]"))
			Expect(string(data)).To(ContainSubstring(`api_key = "sk-open-abcdefgh"`))
		})

		It("replaces a key without touching the others", func() {
			Expect(mgr.Set("openai", "sk-old-00000000")).To(Succeed())
			Expect(mgr.Set("dashscope", "sk-dash-11111111")).To(Succeed())
			Expect(mgr.Set("openai", "sk-new-22222222")).To(Succeed())

			Expect(mgr.Get("openai")).To(Equal("sk-new-22222222"))
			Expect(mgr.Get("dashscope")).To(Equal("sk-dash-11111111"))
		})

		It("rejects unknown providers and blank keys", func() {
			Expect(mgr.Set("ollama", "x")).To(MatchError(credentials.ErrUnknownProvider))
			Expect(mgr.Set("openai", "   ")).To(MatchError(credentials.ErrEmptyKey))
		})

		It("leaves no temp files behind", func() {
			Expect(mgr.Set("openai", "sk-open-abcdefgh")).To(Succeed())

			names, err := os.ReadDir(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(HaveLen(1))
		})
	})

	Describe("Remove", func() {
		It("reports whether a key existed", func() {
			Expect(mgr.Set("deepseek", "sk-deep-123456")).To(Succeed())

			Expect(mgr.Remove("deepseek")).To(BeTrue())
			Expect(mgr.Remove("deepseek")).To(BeFalse())
			Expect(mgr.Get("deepseek")).To(BeEmpty())
		})
	})

	Describe("Entries", func() {
		It("masks keys and notes environment overrides", func() {
			GinkgoT().Setenv("DASHSCOPE_API_KEY", "from-env")
			Expect(mgr.Set("openai", "sk-open-abcdefgh")).To(Succeed())
			Expect(mgr.Set("dashscope", "sk-dash-11112222")).To(Succeed())

			entries, err := mgr.Entries()
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))

			Expect(entries[0].Provider.Name).To(Equal("dashscope"))
			Expect(entries[0].Masked).To(Equal("sk-...2222"))
			Expect(entries[0].EnvOverride).To(BeTrue())
			Expect(entries[0].UpdatedAt).To(Equal(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))

			Expect(entries[1].Provider.Title).To(Equal("OpenAI"))
			Expect(entries[1].EnvOverride).To(BeFalse())
		})
	})

	It("fails on a corrupt file", func() {
		Expect(os.WriteFile(mgr.Path(), []byte("keys = ["), 0o600)).To(Succeed())

		_, err := mgr.Get("openai")
		Expect(err).To(MatchError(ContainSubstring("parsing")))
	})

	Describe("Resolve", func() {
		BeforeEach(func() {
			GinkgoT().Setenv("DEEPSEEK_API_KEY", "")
			GinkgoT().Setenv("AIKEFU_DEEPSEEK_KEY", "")
			Expect(mgr.Set("deepseek", "sk-stored-0000")).To(Succeed())
		})

		It("prefers the configured variable", func() {
			GinkgoT().Setenv("AIKEFU_DEEPSEEK_KEY", "explicit")
			GinkgoT().Setenv("DEEPSEEK_API_KEY", "conventional")
			Expect(mgr.Resolve("deepseek", "AIKEFU_DEEPSEEK_KEY")).To(Equal("explicit"))
		})

		It("then the conventional variable", func() {
			GinkgoT().Setenv("DEEPSEEK_API_KEY", "conventional")
			Expect(mgr.Resolve("deepseek", "AIKEFU_DEEPSEEK_KEY")).To(Equal("conventional"))
		})

		It("then the stored key", func() {
			Expect(mgr.Resolve("deepseek", "")).To(Equal("sk-stored-0000"))
		})

		It("returns nothing for an env-only entry whose variable is unset", func() {
			Expect(mgr.Resolve("", "AIKEFU_DEEPSEEK_KEY")).To(BeEmpty())
		})
	})
})

var _ = Describe("providers", func() {
	It("looks names up case-insensitively", func() {
		p, ok := credentials.Lookup(" OpenAI ")
		Expect(ok).To(BeTrue())
		Expect(p.EnvVar).To(Equal("OPENAI_API_KEY"))

		_, ok = credentials.Lookup("ollama")
		Expect(ok).To(BeFalse())
	})

	It("lists the hosted providers", func() {
		Expect(credentials.Names()).To(Equal([]string{"dashscope", "deepseek", "openai"}))
	})

	DescribeTable("Mask",
		func(key, want string) { Expect(credentials.Mask(key)).To(Equal(want)) },
		Entry("short keys are fully hidden", "abcd", "****"),
		Entry("long keys keep prefix and suffix", "sk-1234567890", "sk-...7890"),
	)
})
