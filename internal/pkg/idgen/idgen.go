package idgen

import (
	"strconv"

	"github.com/google/uuid"
)

// eventNamespace scopes name-based event ids to this service.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:ordersync:status-change"))

// EventID derives the idempotency key of a status change. Repeats of the
// same change share the id.
func EventID(orderID, status string, timestamp int64) string {
	name := orderID + "|" + status + "|" + strconv.FormatInt(timestamp, 10)
	return uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

// NewOrderID returns a random order identifier.
func NewOrderID() string {
	return uuid.NewString()
}
