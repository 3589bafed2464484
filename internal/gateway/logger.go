package gateway

import (
	"fmt"

	"github.com/guilhermegouw/chatkeeper/internal/debug"
)

// restyLogger routes resty diagnostics to the debug log. The logger is
// looked up per call so that enabling debug after construction still works.
type restyLogger struct{}

func (restyLogger) Errorf(format string, v ...interface{}) {
	debug.Logger().Sugar().Named("resty").Errorf(format, v...)
}

func (restyLogger) Warnf(format string, v ...interface{}) {
	debug.Logger().Sugar().Named("resty").Warnf(format, v...)
}

func (restyLogger) Debugf(format string, v ...interface{}) {
	debug.Logger().Sugar().Named("resty").Debugf(format, v...)
}

// retryLogger adapts the debug log to retryablehttp.LeveledLogger.
type retryLogger struct{}

func (retryLogger) Error(msg string, keysAndValues ...interface{}) {
	debug.Logger().Sugar().Named("retry").Errorw(msg, keysAndValues...)
}

func (retryLogger) Info(msg string, keysAndValues ...interface{}) {
	debug.Logger().Sugar().Named("retry").Infow(msg, keysAndValues...)
}

func (retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	debug.Logger().Sugar().Named("retry").Debugw(msg, keysAndValues...)
}

func (retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	debug.Logger().Sugar().Named("retry").Warnw(msg, keysAndValues...)
}

func logCall(op string, status int, err error) {
	if err != nil {
		debug.Error(component, err, op)
		return
	}
	debug.Event(component, op, fmt.Sprintf("status=%d", status))
}
