package authcmder

import (
	"bytes"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/credentials"
)

var _ = Describe("auth", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	// execute runs the auth command under a root that carries --config-dir,
	// feeding stdin through a pipe.
	execute := func(stdin string, args ...string) error {
		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())
		_, err = w.WriteString(stdin)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
		DeferCleanup(r.Close)

		cmd := newAuthCmd(r)
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", dir))
		return cmd.Execute()
	}

	manager := func() *credentials.Manager {
		mgr, err := credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
		return mgr
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		GinkgoT().Setenv("DEEPSEEK_API_KEY", "")
	})

	It("stores a piped key", func() {
		Expect(execute("sk-deep-123456\n", "deepseek")).To(Succeed())

		Expect(manager().Get("deepseek")).To(Equal("sk-deep-123456"))
		Expect(out.String()).To(ContainSubstring("Stored DeepSeek key"))
	})

	It("warns about OpenAI project keys", func() {
		Expect(execute("sk-proj-abcdef123456\n", "openai")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Project keys"))
	})

	It("rejects an empty key", func() {
		Expect(execute("\n", "deepseek")).To(MatchError(credentials.ErrEmptyKey))
	})

	It("requires a provider", func() {
		Expect(execute("")).To(MatchError(ContainSubstring("provider argument required")))
	})

	It("rejects unsupported providers", func() {
		Expect(execute("sk\n", "ollama")).To(MatchError(ContainSubstring(`unsupported provider "ollama"`)))
	})

	It("lists stored keys masked", func() {
		Expect(manager().Set("dashscope", "sk-dash-11112222")).To(Succeed())

		Expect(execute("", "--list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("dashscope"))
		Expect(out.String()).To(ContainSubstring("sk-...2222"))
		Expect(out.String()).NotTo(ContainSubstring("sk-dash-11112222"))
	})

	It("explains an empty list", func() {
		Expect(execute("", "--list")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No stored keys"))
	})

	It("removes a stored key", func() {
		Expect(manager().Set("openai", "sk-open-abcdefgh")).To(Succeed())

		Expect(execute("", "--remove", "openai")).To(Succeed())
		Expect(manager().Get("openai")).To(BeEmpty())

		Expect(execute("", "--remove", "openai")).To(MatchError("no stored key for openai"))
	})

	It("completes provider names", func() {
		cmd := NewAuthCmd()
		names, directive := cmd.ValidArgsFunction(cmd, nil, "")
		Expect(names).To(ConsistOf("dashscope", "deepseek", "openai"))
		Expect(directive).To(Equal(cobra.ShellCompDirectiveNoFileComp))

		names, _ = cmd.ValidArgsFunction(cmd, []string{"openai"}, "")
		Expect(names).To(BeNil())
	})
})
