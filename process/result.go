package process

import "time"

// Result holds the output of a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed or never started.
	ExitCode int
	Duration time.Duration
}

// StderrTail returns at most the last n bytes of stderr.
func (r *Result) StderrTail(n int) string {
	if r == nil {
		return ""
	}
	if len(r.Stderr) <= n {
		return string(r.Stderr)
	}
	return string(r.Stderr[len(r.Stderr)-n:])
}
