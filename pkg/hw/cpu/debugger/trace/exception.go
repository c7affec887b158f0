package trace

import (
	"fmt"
	"io"
	"log/slog"
)

// Exception is a raised exception and the pc that raised it
type Exception struct {
	PC   uint32 `yaml:"pc"`
	Code uint32 `yaml:"code"`
}

// String returns the trace line of the exception
func (e Exception) String() string {
	return fmt.Sprintf("Trigger exception of code %s when pc = %s.", hex08(e.Code), hex08(e.PC))
}

// ExceptionTrace records raised exceptions (etrace)
type ExceptionTrace struct {
	recordLog[Exception]
	logger *slog.Logger
}

// NewExceptionTrace creates an empty exception trace
func NewExceptionTrace(logger *slog.Logger) *ExceptionTrace {
	return &ExceptionTrace{logger: loggerOrDiscard(logger)}
}

// Add records an exception
func (t *ExceptionTrace) Add(pc uint32, code uint32) {
	t.add(Exception{PC: pc, Code: code})
}

// Display writes every exception in order
func (t *ExceptionTrace) Display(w io.Writer) {
	colorTitle.Fprintln(w, "Exception trace:")
	for _, exception := range t.records {
		fmt.Fprintln(w, exception)
	}
}

// Clear drops every record
func (t *ExceptionTrace) Clear() {
	t.logger.Info("Clearing exception trace buffer ...")
	t.clear()
}
