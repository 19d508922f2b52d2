package engine

import "fmt"

// Result is the uniform outcome of every public engine operation. Success
// implies an empty ErrorMessage; a failed result may still carry advisory
// output (for example partial batch rows).
type Result struct {
	Success      bool   `json:"success"`
	Output       any    `json:"output,omitempty"`
	ErrorMessage string `json:"error,omitempty"`
}

func failuref(format string, args ...any) Result {
	return Result{Success: false, ErrorMessage: fmt.Sprintf(format, args...)}
}

func failure(err error) Result {
	return Result{Success: false, ErrorMessage: err.Error()}
}
