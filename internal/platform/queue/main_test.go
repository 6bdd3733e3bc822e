//go:build !integration

package queue_test

import (
	"testing"

	"go.uber.org/goleak"
)

// The integration suite runs containers whose client goroutines outlive the
// tests, so leak checking applies to unit runs only.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
