package codat

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	svix "github.com/svix/svix-webhooks/go"
)

// VerifyWebhook checks the Svix signature headers (svix-id,
// svix-timestamp, svix-signature) on a Codat webhook delivery and
// returns the parsed event. Any signature failure rejects the delivery;
// no side effects may be performed before this check passes.
func VerifyWebhook(secret string, payload []byte, headers http.Header) (*WebhookEvent, error) {
	if secret == "" {
		return nil, errors.New("codat webhook secret is not configured")
	}

	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, errors.Wrap(err, "initializing webhook verifier")
	}

	if err := wh.Verify(payload, headers); err != nil {
		return nil, errors.Wrap(err, "webhook signature verification failed")
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, errors.Wrap(err, "parsing webhook event")
	}
	return &event, nil
}
