package servecmder

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/cache"
	"github.com/xiaomiproject/aikefu/pkg/config"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/kafka"
	"github.com/xiaomiproject/aikefu/pkg/eventstream/nop"
	"github.com/xiaomiproject/aikefu/pkg/llm/provider"
	"github.com/xiaomiproject/aikefu/pkg/logger"
)

type fakeKeys struct {
	keys      map[string]string
	err       error
	requested []string
}

func (f *fakeKeys) Resolve(credential, _ string) (string, error) {
	f.requested = append(f.requested, credential)
	return f.keys[credential], f.err
}

var _ = Describe("newRegistry", func() {
	var keys *fakeKeys

	BeforeEach(func() {
		keys = &fakeKeys{keys: map[string]string{"deepseek": "sk-deepseek"}}
	})

	It("registers the default providers", func() {
		cfg := config.NewDefaultConfig().LLM

		registry, err := newRegistry(cfg, keys, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(registry.Models()).To(Equal([]string{"deepseek-chat", "qwen-plus"}))
		Expect(registry.Default()).To(Equal("deepseek-chat"))
		Expect(keys.requested).To(ConsistOf("deepseek", "dashscope"))
	})

	It("fails when the default model is not registered", func() {
		cfg := config.NewDefaultConfig().LLM
		cfg.DefaultModel = "missing"

		_, err := newRegistry(cfg, keys, logger.Nop())
		Expect(errors.Is(err, provider.ErrDefaultProviderMissing)).To(BeTrue())
	})

	It("rejects a malformed timeout", func() {
		cfg := config.LLMConfig{
			DefaultModel: "m",
			Providers: []config.ProviderConfig{
				{Model: "m", Type: "ollama", ReadTimeout: "soon"},
			},
		}

		_, err := newRegistry(cfg, keys, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("read_timeout")))
	})

	It("rejects a model registered twice", func() {
		cfg := config.LLMConfig{
			DefaultModel: "m",
			Providers: []config.ProviderConfig{
				{Model: "m", Type: "ollama"},
				{Model: "m", Type: "ollama"},
			},
		}

		_, err := newRegistry(cfg, keys, logger.Nop())
		Expect(errors.Is(err, provider.ErrDuplicateModel)).To(BeTrue())
	})

	It("does not look up keys for providers without a credential", func() {
		cfg := config.LLMConfig{
			DefaultModel: "qwen2.5",
			Providers: []config.ProviderConfig{
				{Model: "qwen2.5", Type: "ollama", Endpoint: "http://localhost:11434"},
			},
		}

		_, err := newRegistry(cfg, keys, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(keys.requested).To(BeEmpty())
	})

	It("surfaces credential store failures", func() {
		keys.err = errors.New("corrupt credentials.toml")

		_, err := newRegistry(config.NewDefaultConfig().LLM, keys, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("corrupt credentials.toml")))
	})
})

var _ = Describe("newCache", func() {
	It("defaults to memory", func() {
		c, err := newCache(context.Background(), config.CacheConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(BeAssignableToTypeOf(&cache.Memory{}))
	})

	It("requires an address for redis", func() {
		_, err := newCache(context.Background(), config.CacheConfig{Provider: "redis"}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := newCache(context.Background(), config.CacheConfig{Provider: "memcached"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown cache provider")))
	})
})

var _ = Describe("newPublisher", func() {
	It("uses a nop publisher without brokers", func() {
		p, err := newPublisher(config.EventsConfig{KafkaBrokers: " , "}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("uses kafka when brokers are configured", func() {
		p, err := newPublisher(config.EventsConfig{
			KafkaBrokers: "localhost:9092, localhost:9093",
			KafkaTopic:   "aikefu.answers",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(p.Close)
		Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
	})

	It("requires a topic with brokers", func() {
		_, err := newPublisher(config.EventsConfig{KafkaBrokers: "localhost:9092"}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("splitList", func() {
	It("trims entries and drops blanks", func() {
		Expect(splitList(" a, ,b,")).To(Equal([]string{"a", "b"}))
		Expect(splitList("")).To(BeEmpty())
	})
})

var _ = Describe("loadConfig", func() {
	It("lays environment overrides over config.toml", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[storage]
driver = "sqlite"
sqlite_path = "from-file.db"

[server]
listen = ":9000"
`), 0o600)).To(Succeed())
		GinkgoT().Setenv("AIKEFU_SERVER_LISTEN", ":9100")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := loadConfig(dir, v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		Expect(cfg.Storage.SQLitePath).To(Equal("from-file.db"))
		Expect(cfg.Server.Listen).To(Equal(":9100"))
		Expect(cfg.LLM.Providers).NotTo(BeEmpty())
	})
})

var _ = Describe("newLogger", func() {
	It("rejects an unknown format", func() {
		c := &serveCommander{logFormat: "xml"}
		_, _, err := c.newLogger()
		Expect(err).To(MatchError(ContainSubstring("unknown log format")))
	})

	It("returns no file without --log-file", func() {
		c := &serveCommander{logFormat: "text"}
		l, f, err := c.newLogger()
		Expect(err).NotTo(HaveOccurred())
		Expect(l).NotTo(BeNil())
		Expect(f).To(BeNil())
	})

	It("tees JSON records into the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "aikefu.log")
		c := &serveCommander{logFormat: "text", logFile: path}

		l, f, err := c.newLogger()
		Expect(err).NotTo(HaveOccurred())
		l.Info("listening", "addr", ":8080")
		Expect(f.Close()).To(Succeed())

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"listening"`))
		Expect(string(data)).To(ContainSubstring(`"addr":":8080"`))
	})
})
