package admincmder

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/storage/inmemory"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

var _ = Describe("addUser", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
	})

	It("creates a user who can then authenticate", func() {
		var out bytes.Buffer
		Expect(addUser(ctx, store, "alice", "pw", &out)).To(Succeed())
		Expect(out.String()).To(ContainSubstring("alice"))

		u, err := user.Authenticate(ctx, store, "alice", "pw")
		Expect(err).NotTo(HaveOccurred())
		Expect(u.Role).To(Equal(user.RoleUser))
	})

	It("reports a taken username", func() {
		Expect(addUser(ctx, store, "alice", "pw", &bytes.Buffer{})).To(Succeed())
		Expect(addUser(ctx, store, "alice", "other", &bytes.Buffer{})).To(MatchError(ContainSubstring("already exists")))
	})

	It("rejects a blank password", func() {
		err := addUser(ctx, store, "alice", "", &bytes.Buffer{})
		Expect(err).To(MatchError(user.ErrBlankCredentials))
	})
})
