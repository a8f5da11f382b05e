package worker

import (
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/logger"
)

// newTestPool creates a worker pool with a nop logger.
// Callers should "wp.Close()" to drain enqueued jobs before asserting state.
func newTestPool(workers, queue uint) *Pool {
	wp, err := NewPool(Config{
		NumWorkers: workers,
		QueueSize:  queue,
		Logger:     logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return wp
}

var _ = Describe("Worker Pool", func() {
	Describe("NewPool", func() {
		It("applies defaults", func() {
			wp := newTestPool(0, 0)
			defer wp.Close()
			Expect(cap(wp.queue)).To(Equal(int(defaultJobQueueSize)))
		})
	})

	Describe("Enqueue", func() {
		It("runs every queued job before Close returns", func() {
			wp := newTestPool(4, 16)

			var ran atomic.Int32
			for range 10 {
				Expect(wp.Enqueue(Job{Name: "count", Run: func() { ran.Add(1) }})).To(BeTrue())
			}
			wp.Close()

			Expect(ran.Load()).To(Equal(int32(10)))
		})

		It("returns false when the queue is full", func() {
			wp := newTestPool(1, 1)

			release := make(chan struct{})
			started := make(chan struct{})
			Expect(wp.Enqueue(Job{Name: "block", Run: func() {
				close(started)
				<-release
			}})).To(BeTrue())
			Eventually(started).Should(BeClosed())

			// the single worker is busy, so one job fits in the queue
			Expect(wp.Enqueue(Job{Name: "queued", Run: func() {}})).To(BeTrue())
			Expect(wp.Enqueue(Job{Name: "dropped", Run: func() {}})).To(BeFalse())

			close(release)
			wp.Close()
		})

		It("returns false after Close", func() {
			wp := newTestPool(1, 1)
			wp.Close()
			Expect(wp.Enqueue(Job{Name: "late", Run: func() {}})).To(BeFalse())
		})

		It("survives a panicking job", func() {
			wp := newTestPool(1, 4)

			var ran atomic.Bool
			Expect(wp.Enqueue(Job{Name: "boom", Run: func() { panic("boom") }})).To(BeTrue())
			Expect(wp.Enqueue(Job{Name: "after", Run: func() { ran.Store(true) }})).To(BeTrue())
			wp.Close()

			Expect(ran.Load()).To(BeTrue())
		})
	})

	It("tolerates a double Close", func() {
		wp := newTestPool(1, 1)
		wp.Close()
		wp.Close()
	})
})
