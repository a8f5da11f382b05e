package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/xiaomiproject/aikefu/pkg/client"
)

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		mux    *http.ServeMux
		server *httptest.Server
		c      *client.Client
	)

	BeforeEach(func() {
		ctx = context.Background()
		mux = http.NewServeMux()
		server = httptest.NewServer(mux)
		DeferCleanup(server.Close)
		c = client.New(server.URL+"/", "alice", "pw")
	})

	requireAuth := func(w http.ResponseWriter, r *http.Request) bool {
		u, p, ok := r.BasicAuth()
		if !ok || u != "alice" || p != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"authentication required"}`)
			return false
		}
		return true
	}

	Describe("Ask", func() {
		It("posts the question and decodes the answer", func() {
			mux.HandleFunc("POST /api/chat/ask", func(w http.ResponseWriter, r *http.Request) {
				if !requireAuth(w, r) {
					return
				}
				var body map[string]string
				Expect(json.NewDecoder(r.Body).Decode(&body)).To(Succeed())
				Expect(body["question"]).To(Equal("hours?"))
				Expect(body["conversationId"]).To(Equal("c1"))
				_, _ = io.WriteString(w, `{"answer":"9 to 5","conversationId":"c1","source":"knowledge"}`)
			})

			a, err := c.Ask(ctx, client.AskRequest{Question: "hours?", ConversationID: "c1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Text).To(Equal("9 to 5"))
			Expect(a.Source).To(Equal("knowledge"))
		})

		It("returns a StatusError with the server's message", func() {
			mux.HandleFunc("POST /api/chat/ask", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"question must not be empty"}`)
			})

			_, err := c.Ask(ctx, client.AskRequest{})
			Expect(client.IsStatus(err, http.StatusBadRequest)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("question must not be empty"))
		})
	})

	Describe("Stream", func() {
		It("delivers fragments and returns the conversation id", func() {
			mux.HandleFunc("POST /api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
				if !requireAuth(w, r) {
					return
				}
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, "event: fragment\ndata: {\"text\":\"Hel\"}\n\n")
				_, _ = io.WriteString(w, "event: fragment\ndata: {\"text\":\"lo\"}\n\n")
				_, _ = io.WriteString(w, "event: done\ndata: {\"conversationId\":\"c9\"}\n\n")
			})

			var got []string
			id, err := c.Stream(ctx, client.AskRequest{Question: "hi"}, func(s string) { got = append(got, s) })
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("c9"))
			Expect(got).To(Equal([]string{"Hel", "lo"}))
		})

		It("reports an error event", func() {
			mux.HandleFunc("POST /api/chat/stream", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "event: fragment\ndata: {\"text\":\"Hel\"}\n\n")
				_, _ = io.WriteString(w, "event: error\ndata: {\"error\":\"upstream failed\"}\n\n")
			})

			_, err := c.Stream(ctx, client.AskRequest{Question: "hi"}, nil)
			Expect(err).To(MatchError(ContainSubstring("upstream failed")))
		})

		It("fails when the stream ends early", func() {
			mux.HandleFunc("POST /api/chat/stream", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, "event: fragment\ndata: {\"text\":\"Hel\"}\n\n")
			})

			_, err := c.Stream(ctx, client.AskRequest{Question: "hi"}, nil)
			Expect(err).To(MatchError(ContainSubstring("without completing")))
		})

		It("returns a StatusError when refused", func() {
			mux.HandleFunc("POST /api/chat/stream", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, `{"error":"server busy"}`)
			})

			_, err := c.Stream(ctx, client.AskRequest{Question: "hi"}, nil)
			Expect(client.IsStatus(err, http.StatusServiceUnavailable)).To(BeTrue())
		})
	})

	Describe("history", func() {
		It("lists conversations", func() {
			mux.HandleFunc("GET /api/history", func(w http.ResponseWriter, r *http.Request) {
				if !requireAuth(w, r) {
					return
				}
				_, _ = io.WriteString(w, `[{"id":"r1","userId":"u","conversationId":"c1","question":"q","answer":"a","createdAt":"2026-01-01T00:00:00Z"}]`)
			})

			records, err := c.Conversations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ConversationID).To(Equal("c1"))
		})

		It("escapes conversation ids", func() {
			mux.HandleFunc("DELETE /api/history/{id}", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.PathValue("id")).To(Equal("a b"))
				w.WriteHeader(http.StatusNoContent)
			})

			Expect(c.DeleteConversation(ctx, "a b")).To(Succeed())
		})

		It("surfaces 404 for unknown conversations", func() {
			mux.HandleFunc("GET /api/history/{id}", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":"conversation not found"}`)
			})

			_, err := c.Conversation(ctx, "missing")
			Expect(client.IsStatus(err, http.StatusNotFound)).To(BeTrue())
		})
	})

	Describe("Register", func() {
		It("sends no credentials", func() {
			mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
				_, _, ok := r.BasicAuth()
				Expect(ok).To(BeFalse())
				w.WriteHeader(http.StatusCreated)
				_, _ = io.WriteString(w, `{"id":"u1","username":"carol","role":"ROLE_USER"}`)
			})

			u, err := client.New(server.URL, "", "").Register(ctx, "carol", "pw")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Username).To(Equal("carol"))
		})
	})

	Describe("Models", func() {
		It("decodes the model list", func() {
			mux.HandleFunc("GET /api/models", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"models":["a","b"],"default":"a"}`)
			})

			m, err := c.Models(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Models).To(Equal([]string{"a", "b"}))
			Expect(m.Default).To(Equal("a"))
		})
	})
})
