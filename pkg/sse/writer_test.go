package sse

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("WriteEvent", func() {
	It("frames a typed event", func() {
		var buf bytes.Buffer
		Expect(WriteEvent(&buf, Event{Type: "fragment", Data: `{"text":"Hel"}`})).To(Succeed())
		Expect(buf.String()).To(Equal("event: fragment\ndata: {\"text\":\"Hel\"}\n\n"))
	})

	It("splits multi-line data", func() {
		var buf bytes.Buffer
		Expect(WriteEvent(&buf, Event{ID: "7", Data: "a\nb"})).To(Succeed())
		Expect(buf.String()).To(Equal("id: 7\ndata: a\ndata: b\n\n"))
	})

	It("round-trips through the Reader", func() {
		var buf bytes.Buffer
		Expect(WriteEvent(&buf, Event{Type: "done", Data: "line one\nline two"})).To(Succeed())

		ev, err := NewReader(strings.NewReader(buf.String())).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Type).To(Equal("done"))
		Expect(ev.Data).To(Equal("line one\nline two"))
	})
})
