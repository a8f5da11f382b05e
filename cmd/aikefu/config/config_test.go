package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/xiaomiproject/aikefu/cmd/aikefu/config"
	"github.com/xiaomiproject/aikefu/pkg/config"
)

var _ = Describe("config", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	run := func(args ...string) error {
		root := &cobra.Command{Use: "aikefu", SilenceUsage: true, SilenceErrors: true}
		root.PersistentFlags().String("config-dir", "", "")
		root.AddCommand(configcmder.NewConfigCmd())
		root.SetOut(out)
		root.SetArgs(append(append([]string{"config"}, args...), "--config-dir", dir))
		return root.Execute()
	}

	load := func() *config.Config {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	BeforeEach(func() {
		dir = filepath.Join(GinkgoT().TempDir(), ".aikefu")
		out = &bytes.Buffer{}
	})

	It("has init, set, get and list subcommands", func() {
		var names []string
		for _, sub := range configcmder.NewConfigCmd().Commands() {
			names = append(names, sub.Name())
		}
		Expect(names).To(ConsistOf("init", "set", "get", "list"))
	})

	Describe("init", func() {
		It("writes the chosen preset", func() {
			Expect(run("init", "--preset", "ollama")).To(Succeed())

			Expect(filepath.Join(dir, "config.toml")).To(BeAnExistingFile())
			Expect(load().LLM.DefaultModel).To(Equal("qwen2.5"))
			Expect(out.String()).To(ContainSubstring("default model qwen2.5"))
		})

		It("keeps an existing file unless forced", func() {
			Expect(run("init")).To(Succeed())
			Expect(run("init", "--preset", "openai")).To(MatchError(ContainSubstring("already exists")))
			Expect(load().LLM.DefaultModel).To(Equal("deepseek-chat"))

			Expect(run("init", "--preset", "openai", "--force")).To(Succeed())
			Expect(load().LLM.DefaultModel).To(Equal("gpt-4o-mini"))
		})

		It("rejects unknown presets", func() {
			Expect(run("init", "--preset", "nope")).To(MatchError(ContainSubstring("unknown preset")))
		})
	})

	Describe("set and get", func() {
		BeforeEach(func() {
			Expect(os.MkdirAll(dir, 0o700)).To(Succeed())
		})

		It("round-trips a value", func() {
			Expect(run("set", "storage.driver", "sqlite")).To(Succeed())
			Expect(load().Storage.Driver).To(Equal("sqlite"))

			out.Reset()
			Expect(run("get", "storage.driver")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("sqlite"))
		})

		It("redacts DSN passwords", func() {
			Expect(run("set", "storage.postgres_dsn", "postgres://aikefu:hunter2@db:5432/aikefu")).To(Succeed())

			out.Reset()
			Expect(run("get", "storage.postgres_dsn")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("postgres://aikefu:****@db:5432/aikefu"))
			Expect(out.String()).NotTo(ContainSubstring("hunter2"))
		})

		It("validates keys and arity", func() {
			Expect(run("set", "nope", "x")).To(MatchError(ContainSubstring(`unknown config key "nope"`)))
			Expect(run("get", "nope")).To(MatchError(ContainSubstring(`unknown config key "nope"`)))
			Expect(run("set", "storage.driver")).To(HaveOccurred())
			Expect(run("get")).To(HaveOccurred())
		})

		It("rejects values of the wrong type", func() {
			Expect(run("set", "server.stream_workers", "many")).To(HaveOccurred())
		})
	})

	It("refuses to set without a config directory", func() {
		dir = ""
		DeferCleanup(os.Chdir, must(os.Getwd()))
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		GinkgoT().Setenv("HOME", GinkgoT().TempDir())

		Expect(run("set", "storage.driver", "sqlite")).To(MatchError(ContainSubstring("aikefu config init")))
	})

	Describe("list", func() {
		It("groups keys by section and shows the providers", func() {
			Expect(run("init")).To(Succeed())
			out.Reset()

			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("[storage]"))
			Expect(out.String()).To(ContainSubstring("[llm]"))
			Expect(out.String()).To(ContainSubstring("[[llm.providers]]"))
			Expect(out.String()).To(ContainSubstring("deepseek-chat"))
		})

		It("takes no arguments", func() {
			Expect(run("list", "extra")).To(HaveOccurred())
		})
	})
})

func must(s string, err error) string {
	Expect(err).NotTo(HaveOccurred())
	return s
}
