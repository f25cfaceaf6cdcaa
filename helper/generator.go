package helper

import (
	"crypto/rand"

	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/oklog/ulid"
)

// TokenIDPrefix marks opaque bookmarklet capability tokens. The prefix
// makes leaked values recognizable in logs and support tickets.
const TokenIDPrefix = "bmk."

// GenerateTokenID creates an opaque capability token identifier.
func GenerateTokenID() string {
	secret, err := base62.Random(32)
	if err != nil {
		// base62.Random only fails when crypto/rand does
		panic(err)
	}
	return TokenIDPrefix + secret
}

// GenerateDeliveryID creates a sortable identifier for one script
// delivery. It is embedded in the generated script and echoed back by
// the submission report, tying a report to the delivery that produced
// it.
func GenerateDeliveryID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
