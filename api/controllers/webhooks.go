package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/delacruzbakes/bakeshop-backend/api/responses"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

// PaymentReconciler applies a processor-confirmed outcome to the intent that
// owns the source.
type PaymentReconciler interface {
	Reconcile(ctx context.Context, sourceID string, verified bool) (*models.PaymentIntent, error)
}

// payMongoEvent is the subset of the webhook envelope we act on.
type payMongoEvent struct {
	Data struct {
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					Source struct {
						ID string `json:"id"`
					} `json:"source"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// PayMongoWebhook ingests processor events. A valid signature lets the
// reconciler trust a paid event outright; failure events and unsigned
// deliveries re-fetch the source status before anything settles.
func PayMongoWebhook(svc PaymentReconciler, webhookSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		verified := validatePayMongoSignature(payload, webhookSecret, r.Header.Get("Paymongo-Signature"))

		var event payMongoEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		eventType := event.Data.Attributes.Type
		sourceID := sourceIDForEvent(event)
		if sourceID == "" {
			if logg != nil {
				logg.Warn(ctx, fmt.Sprintf("paymongo event %s carried no source id", eventType))
			}
			responses.WriteSuccess(w, nil)
			return
		}

		switch eventType {
		case "source.chargeable", "payment.paid":
			if _, err := svc.Reconcile(ctx, sourceID, verified); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		case "payment.failed", "source.cancelled", "source.expired":
			// The trusted path settles as paid, so failure events always re-poll.
			if _, err := svc.Reconcile(ctx, sourceID, false); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		default:
			if logg != nil {
				logg.Info(ctx, fmt.Sprintf("ignoring paymongo event %s", eventType))
			}
		}

		responses.WriteSuccess(w, nil)
	}
}

func sourceIDForEvent(event payMongoEvent) string {
	resourceID := event.Data.Attributes.Data.ID
	if strings.HasPrefix(resourceID, "src_") {
		return resourceID
	}
	return event.Data.Attributes.Data.Attributes.Source.ID
}

// validatePayMongoSignature checks the t=...,te=...,li=... header format:
// HMAC-SHA256 of "<timestamp>.<payload>" must match the test or live digest.
func validatePayMongoSignature(payload []byte, secret, header string) bool {
	if header == "" || secret == "" {
		return false
	}

	var timestamp, testDigest, liveDigest string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "te":
			testDigest = value
		case "li":
			liveDigest = value
		}
	}
	if timestamp == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(liveDigest)) ||
		hmac.Equal([]byte(expected), []byte(testDigest))
}
