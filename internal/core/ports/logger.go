package ports

// Logger is the minimal logging surface the provisioning code needs. The
// concrete implementation emits timestamped lines; domain and application
// code never touch the logging library directly.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger discards everything; handy default for tests.
type NopLogger struct{}

func (NopLogger) Infof(format string, args ...any)  {}
func (NopLogger) Warnf(format string, args ...any)  {}
func (NopLogger) Errorf(format string, args ...any) {}
