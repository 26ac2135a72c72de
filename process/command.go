package process

import (
	"io"
	"time"
)

// Command configures a worker subprocess.
type Command struct {
	// Binary is the executable path or a name resolved through PATH.
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra key=value variables appended to os.Environ.
	Env []string
	// Stdin is fed to the process. May be nil.
	Stdin io.Reader
	// GracePeriod is the wait between SIGTERM and SIGKILL once the context
	// is done. Defaults to DefaultGracePeriod.
	GracePeriod time.Duration
}

// DefaultGracePeriod is used when a Command leaves GracePeriod unset.
const DefaultGracePeriod = 5 * time.Second
