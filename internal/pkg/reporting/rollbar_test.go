package reporting

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestConfigure_DisabledWithoutToken(t *testing.T) {
	Configure(Config{Environment: "test"})
	assert.False(t, Enabled())

	// must be no-ops while disabled
	ReportRequestError(httptest.NewRequest("GET", "/", nil), errors.New("boom"), nil)
	Hook{}.Run(nil, zerolog.ErrorLevel, "boom")
	Flush()
}
