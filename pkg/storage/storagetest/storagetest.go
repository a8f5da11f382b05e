// Package storagetest holds behavior specs every storage.Driver must pass.
package storagetest

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
	"github.com/xiaomiproject/aikefu/pkg/storage"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

// DescribeDriver registers the shared driver specs. newDriver is called
// before each test and closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
		alice  *user.User
		bob    *user.User
		base   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver(ctx)
		base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

		var err error
		alice, err = user.New("alice", "pw-alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.CreateUser(ctx, alice)).To(Succeed())

		bob, err = user.New("bob", "pw-bob")
		Expect(err).NotTo(HaveOccurred())
		Expect(driver.CreateUser(ctx, bob)).To(Succeed())
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	appendAt := func(u *user.User, conv, question string, at time.Time) *history.Record {
		r := history.NewRecord(u.ID, conv, question, "answer to "+question)
		r.CreatedAt = at
		Expect(driver.AppendHistory(ctx, r)).To(Succeed())
		return r
	}

	Describe("Knowledge", func() {
		It("misses on an unknown question", func() {
			_, ok, err := driver.FindExact(ctx, "Where is my parcel?")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("finds an entry by its exact question", func() {
			created, err := driver.PutKnowledge(ctx, knowledge.Entry{
				Question: "Where is my parcel?",
				Answer:   "Check the tracking page.",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			answer, ok, err := driver.FindExact(ctx, "Where is my parcel?")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(answer).To(Equal("Check the tracking page."))
		})

		It("matches case-sensitively and without trimming", func() {
			_, err := driver.PutKnowledge(ctx, knowledge.Entry{Question: "Hello", Answer: "Hi"})
			Expect(err).NotTo(HaveOccurred())

			_, ok, err := driver.FindExact(ctx, "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			_, ok, err = driver.FindExact(ctx, "Hello ")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("updates the existing entry on a repeated question", func() {
			_, err := driver.PutKnowledge(ctx, knowledge.Entry{Question: "q", Answer: "old"})
			Expect(err).NotTo(HaveOccurred())

			created, err := driver.PutKnowledge(ctx, knowledge.Entry{Question: "q", Answer: "new"})
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())

			answer, _, err := driver.FindExact(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(answer).To(Equal("new"))

			n, err := driver.CountKnowledge(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))
		})

		It("rejects an empty question", func() {
			_, err := driver.PutKnowledge(ctx, knowledge.Entry{Answer: "a"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("History", func() {
		It("rejects records without a conversation id", func() {
			r := history.NewRecord(alice.ID, "", "q", "a")
			Expect(driver.AppendHistory(ctx, r)).To(MatchError(history.ErrMissingConversation))
		})

		It("lists a user's records newest first", func() {
			appendAt(alice, "c1", "first", base)
			appendAt(alice, "c2", "second", base.Add(time.Minute))
			appendAt(bob, "c3", "other", base.Add(2*time.Minute))

			records, err := driver.ListHistoryByUser(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Question).To(Equal("second"))
			Expect(records[1].Question).To(Equal("first"))
			Expect(records[0].CreatedAt).To(BeTemporally("==", base.Add(time.Minute)))
		})

		It("lists a conversation oldest first", func() {
			appendAt(alice, "c1", "later", base.Add(time.Minute))
			appendAt(alice, "c1", "earlier", base)

			records, err := driver.ListHistoryByConversation(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Question).To(Equal("earlier"))
			Expect(records[0].UserID).To(Equal(alice.ID))
		})

		It("returns an empty list for an unknown user", func() {
			records, err := driver.ListHistoryByUser(ctx, "nobody")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("summarizes conversations by their opening record", func() {
			appendAt(alice, "c1", "c1-open", base)
			appendAt(alice, "c1", "c1-follow", base.Add(10*time.Minute))
			appendAt(alice, "c2", "c2-open", base.Add(time.Minute))

			records, err := driver.ListHistoryByUser(ctx, alice.ID)
			Expect(err).NotTo(HaveOccurred())

			convs := history.Conversations(records)
			Expect(convs).To(HaveLen(2))
			Expect(convs[0].Question).To(Equal("c2-open"))
			Expect(convs[1].Question).To(Equal("c1-open"))
		})

		Describe("DeleteConversation", func() {
			It("returns ErrNotFound for an unknown conversation", func() {
				_, err := driver.DeleteConversation(ctx, "missing", alice.ID)
				Expect(err).To(MatchError(history.ErrNotFound))
			})

			It("returns ErrPermissionDenied for a non-owner and keeps the records", func() {
				appendAt(alice, "c1", "q", base)

				_, err := driver.DeleteConversation(ctx, "c1", bob.ID)
				Expect(err).To(MatchError(history.ErrPermissionDenied))

				records, err := driver.ListHistoryByConversation(ctx, "c1")
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
			})

			It("decides ownership by the earliest record", func() {
				appendAt(alice, "shared", "opened by alice", base)
				appendAt(bob, "shared", "bob joined", base.Add(time.Minute))

				_, err := driver.DeleteConversation(ctx, "shared", bob.ID)
				Expect(err).To(MatchError(history.ErrPermissionDenied))

				n, err := driver.DeleteConversation(ctx, "shared", alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(2))
			})

			It("removes every record of the conversation only", func() {
				appendAt(alice, "c1", "a", base)
				appendAt(alice, "c1", "b", base.Add(time.Minute))
				appendAt(alice, "c2", "c", base.Add(2*time.Minute))

				n, err := driver.DeleteConversation(ctx, "c1", alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(n).To(Equal(2))

				records, err := driver.ListHistoryByUser(ctx, alice.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(1))
				Expect(records[0].ConversationID).To(Equal("c2"))

				_, err = driver.DeleteConversation(ctx, "c1", alice.ID)
				Expect(err).To(MatchError(history.ErrNotFound))
			})
		})
	})

	Describe("Users", func() {
		It("fetches users by username", func() {
			u, err := driver.GetUserByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(alice.ID))
			Expect(u.Role).To(Equal(user.RoleUser))
			Expect(user.Verify(u.PasswordHash, "pw-alice")).To(BeTrue())
			Expect(u.LastLoginAt).To(BeNil())
		})

		It("returns ErrNotFound for unknown usernames", func() {
			_, err := driver.GetUserByUsername(ctx, "carol")
			Expect(err).To(MatchError(user.ErrNotFound))
		})

		It("rejects duplicate usernames", func() {
			dup, err := user.New("alice", "other")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CreateUser(ctx, dup)).To(MatchError(user.ErrUsernameTaken))
		})

		It("records the last login time", func() {
			at := base.Add(time.Hour)
			Expect(driver.TouchLogin(ctx, alice.ID, at)).To(Succeed())

			u, err := driver.GetUserByUsername(ctx, "alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.LastLoginAt).NotTo(BeNil())
			Expect(*u.LastLoginAt).To(BeTemporally("==", at))
		})

		It("returns ErrNotFound when touching an unknown user", func() {
			Expect(driver.TouchLogin(ctx, "missing", base)).To(MatchError(user.ErrNotFound))
		})
	})
}
