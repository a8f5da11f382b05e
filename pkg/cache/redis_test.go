package cache_test

import (
	"context"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/cache"
)

var _ = Describe("Redis", func() {
	It("requires an address", func() {
		_, err := cache.NewRedis(context.Background(), "")
		Expect(err).To(MatchError(ContainSubstring("must not be empty")))
	})

	It("fails when the server is unreachable", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		_, err := cache.NewRedis(ctx, "127.0.0.1:1")
		Expect(err).To(MatchError(ContainSubstring("connecting to redis")))
	})

	Context("against a running server", func() {
		var (
			ctx context.Context
			srv *miniredis.Miniredis
			c   *cache.Redis
		)

		BeforeEach(func() {
			ctx = context.Background()
			srv = miniredis.RunT(GinkgoT())

			var err error
			c, err = cache.NewRedis(ctx, srv.Addr())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(c.Close)
		})

		It("misses on an unknown question", func() {
			answer, ok, err := c.Lookup(ctx, "怎么退货")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(answer).To(BeEmpty())
		})

		It("returns a stored answer", func() {
			Expect(c.Store(ctx, "怎么退货", "7天内可申请退货")).To(Succeed())

			answer, ok, err := c.Lookup(ctx, "怎么退货")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(answer).To(Equal("7天内可申请退货"))
		})

		It("keeps the last answer stored for a question", func() {
			Expect(c.Store(ctx, "q", "first")).To(Succeed())
			Expect(c.Store(ctx, "q", "second")).To(Succeed())

			answer, _, err := c.Lookup(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("second"))
		})

		It("stores answers under the key prefix without expiry", func() {
			Expect(c.Store(ctx, "q", "a")).To(Succeed())

			Expect(srv.Keys()).To(ConsistOf(cache.KeyPrefix + "q"))
			Expect(srv.TTL(cache.KeyPrefix + "q")).To(BeZero())
			v, err := srv.Get(cache.KeyPrefix + "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("a"))
		})

		It("ignores keys outside the prefix", func() {
			Expect(srv.Set("q", "unprefixed")).To(Succeed())

			_, ok, err := c.Lookup(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("reports server errors instead of a miss", func() {
			srv.SetError("ERR cache unavailable")

			_, ok, err := c.Lookup(ctx, "q")
			Expect(err).To(MatchError(ContainSubstring("reading cached answer")))
			Expect(ok).To(BeFalse())

			Expect(c.Store(ctx, "q", "a")).To(MatchError(ContainSubstring("writing cached answer")))
		})
	})

	It("wraps an existing client", func() {
		srv := miniredis.RunT(GinkgoT())
		client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		c := cache.NewRedisWithClient(client)

		Expect(c.Store(context.Background(), "q", "a")).To(Succeed())
		answer, ok, err := c.Lookup(context.Background(), "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(answer).To(Equal("a"))
		Expect(c.Close()).To(Succeed())
	})
})
