package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/gorelay/internal/pkg/router.middlewareRecoverer.func1.1()
	/app/internal/pkg/router/middleware_recover.go:31 +0x8a
panic({0x1234, 0x5678})
	/usr/local/go/src/runtime/panic.go:785 +0x132
github.com/shandysiswandi/gorelay/internal/relay/inbound.(*endpoint).SubmitMessage(...)
	/app/internal/relay/inbound/http_endpoint.go:88
`)

	assert.Equal(t, []string{
		"internal/pkg/router/middleware_recover.go:31",
		"internal/relay/inbound/http_endpoint.go:88",
	}, InternalPaths(stack))

	assert.Empty(t, InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/app/main.go:10 +0x1\n")))
}
