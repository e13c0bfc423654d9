package logsvc

import (
	"log"
	"os"

	"github.com/shulehq/shule/core"
)

// testLogger logs to stderr only; it backs the tests and the admin CLI where
// remote error reporting is unwanted.
type testLogger struct {
	std *log.Logger
}

var _ core.Logger = (*testLogger)(nil)

func NewTestLogger() core.Logger {
	return &testLogger{std: log.New(os.Stderr, "", log.LstdFlags)}
}

func (l testLogger) Enable(bool) {}

func (l testLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.print(msg, args); l.std.Fatal(msg) }
