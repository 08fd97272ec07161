package reporting

import (
	"errors"
	"net/http"
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rs/zerolog"
)

// Config holds the Rollbar settings
type Config struct {
	Token       string
	Environment string
	CodeVersion string
}

// Configure sets up the Rollbar notifier. Reporting stays disabled without a token.
func Configure(cfg Config) {
	rollbar.SetToken(cfg.Token)
	rollbar.SetEnvironment(cfg.Environment)
	rollbar.SetCodeVersion(cfg.CodeVersion)
	if host, err := os.Hostname(); err == nil {
		rollbar.SetServerHost(host)
	}
	rollbar.SetEnabled(cfg.Token != "")
}

// Enabled reports whether errors are sent to Rollbar
func Enabled() bool {
	return rollbar.Token() != ""
}

// ReportRequestError sends an unexpected error raised while serving req
func ReportRequestError(req *http.Request, err error, extras map[string]interface{}) {
	if !Enabled() || err == nil {
		return
	}
	rollbar.RequestErrorWithExtras(rollbar.ERR, req, err, extras)
}

// Flush blocks until queued reports are sent
func Flush() {
	if Enabled() {
		rollbar.Wait()
	}
}

// Hook forwards fatal log events to Rollbar. Request errors are reported
// with their request through ReportRequestError instead.
type Hook struct{}

// Run implements zerolog.Hook
func (Hook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if !Enabled() || level < zerolog.FatalLevel || msg == "" {
		return
	}
	rollbar.Critical(errors.New(msg))
	rollbar.Wait()
}
