package cache_test

import (
	"context"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/cache"
)

var _ = Describe("Memory", func() {
	var (
		ctx context.Context
		c   *cache.Memory
	)

	BeforeEach(func() {
		ctx = context.Background()
		c = cache.NewMemory()
	})

	It("misses on an unknown question", func() {
		_, ok, err := c.Lookup(ctx, "What is the return policy?")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns what was stored", func() {
		Expect(c.Store(ctx, "q", "a")).To(Succeed())

		answer, ok, err := c.Lookup(ctx, "q")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(answer).To(Equal("a"))
	})

	It("is keyed by the exact question text", func() {
		Expect(c.Store(ctx, "Hello", "a")).To(Succeed())

		_, ok, _ := c.Lookup(ctx, "hello")
		Expect(ok).To(BeFalse())
		_, ok, _ = c.Lookup(ctx, "Hello ")
		Expect(ok).To(BeFalse())
	})

	It("keeps the last write", func() {
		Expect(c.Store(ctx, "q", "first")).To(Succeed())
		Expect(c.Store(ctx, "q", "second")).To(Succeed())

		answer, _, _ := c.Lookup(ctx, "q")
		Expect(answer).To(Equal("second"))
		Expect(c.Len()).To(Equal(1))
	})

	It("is safe for concurrent use", func() {
		var wg sync.WaitGroup
		for i := range 50 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				q := fmt.Sprintf("q-%d", i%10)
				_ = c.Store(ctx, q, "a")
				_, _, _ = c.Lookup(ctx, q)
			}(i)
		}
		wg.Wait()
		Expect(c.Len()).To(Equal(10))
	})
})
