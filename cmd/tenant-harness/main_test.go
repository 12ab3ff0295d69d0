package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// A successful run must return from runExecuteCommand with exit code 0; the
// signal goroutine must not keep the process alive once the run is over.
func TestRunExecuteCommandReturnsZeroOnSuccess(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()
	port := listener.Addr().(*net.TCPAddr).Port

	planPath := filepath.Join(t.TempDir(), "plan.yaml")
	planYAML := `
schemaVersion: "1.0"
probe:
  strategy: tcp
  attempts: 3
  interval: 10ms
suite:
  command: "true"
  executors: [standard, multiprocessing]
`
	require.NoError(t, os.WriteFile(planPath, []byte(planYAML), 0o600))

	done := make(chan int, 1)
	go func() {
		done <- runExecuteCommand([]string{
			"-plan", planPath,
			"-database-host", "127.0.0.1",
			"-database-port", fmt.Sprint(port),
			"-log-level", "error",
		})
	}()

	select {
	case code := <-done:
		require.Equal(t, 0, code)
	case <-time.After(10 * time.Second):
		t.Fatal("runExecuteCommand did not return after a successful run")
	}
}
