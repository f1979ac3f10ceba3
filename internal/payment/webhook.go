package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrEventIgnored 事件合法但与支付确认无关（非 checkout.session.completed）。
var ErrEventIgnored = errors.New("event ignored")

// CheckoutEvent 从 Stripe 事件中提取的、业务需要的最小字段。
type CheckoutEvent struct {
	ReservationID string
	UserID        string
	AmountCents   int64
	Currency      string
	SessionID     string
}

// EventVerifier 校验 webhook 签名并解出结账完成事件。
// 生产实现是 StripeVerifier，单测用 fake 直接构造 CheckoutEvent。
type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (*CheckoutEvent, error)
}

// StripeVerifier 基于 webhook 签名密钥校验事件真实性。
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Verify(payload []byte, sigHeader string) (*CheckoutEvent, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, v.secret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return nil, ErrEventIgnored
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	ev := &CheckoutEvent{
		ReservationID: sess.Metadata["reservation_id"],
		UserID:        sess.Metadata["user_id"],
		AmountCents:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		SessionID:     sess.ID,
	}
	if ev.ReservationID == "" {
		return nil, fmt.Errorf("checkout session %s has no reservation_id metadata", sess.ID)
	}
	return ev, nil
}
