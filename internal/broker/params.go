package broker

import (
	"net/http"
	"time"

	"order-gateway/internal/interfaces"
)

// Params configures an adapter at startup. Per-user credentials are not
// part of it; they arrive with every call as a types.Session.
type Params struct {
	BaseURL    string
	Timeout    time.Duration
	Resolver   interfaces.InstrumentResolver
	HTTPClient *http.Client
}
