package correlation

import (
	"fmt"

	"golang.org/x/net/http/httpguts"
)

const DefaultHeaderName = "x-correlation-id"

type Config struct {
	// HeaderName is consulted for a caller supplied id.
	HeaderName string
	// EnforceHeader rejects requests without a usable HeaderName value.
	EnforceHeader bool
	// ResponseHeaderName, when set, echoes the id on every response.
	ResponseHeaderName string
	// IncludeInResponse echoes the id under HeaderName when
	// ResponseHeaderName is empty.
	IncludeInResponse bool
}

func DefaultConfig() Config {
	return Config{HeaderName: DefaultHeaderName}
}

// EffectiveResponseHeader reports the header the id is echoed under, if any.
func (c Config) EffectiveResponseHeader() (string, bool) {
	switch {
	case c.ResponseHeaderName != "":
		return c.ResponseHeaderName, true
	case c.IncludeInResponse:
		return c.HeaderName, true
	default:
		return "", false
	}
}

func (c Config) Validate() error {
	if !httpguts.ValidHeaderFieldName(c.HeaderName) {
		return fmt.Errorf("invalid request header name '%s'", c.HeaderName)
	}

	if c.ResponseHeaderName != "" && !httpguts.ValidHeaderFieldName(c.ResponseHeaderName) {
		return fmt.Errorf("invalid response header name '%s'", c.ResponseHeaderName)
	}

	return nil
}
