package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"

	"github.com/xiaomiproject/aikefu/pkg/storage"
	"github.com/xiaomiproject/aikefu/pkg/storage/inmemory"
	"github.com/xiaomiproject/aikefu/pkg/storage/storagetest"
)

var _ storage.Driver = (*inmemory.Driver)(nil)

var _ = Describe("Driver", func() {
	storagetest.DescribeDriver(func(context.Context) storage.Driver {
		return inmemory.NewDriver()
	})
})
