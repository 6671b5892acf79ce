package paygate

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Breaker はゲートウェイ呼び出しをサーキットブレーカーで包む。
// Success=false（ErrRejected）は障害として数えない。
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(next Gateway, log logrus.FieldLogger) *Breaker {
	st := gobreaker.Settings{
		Name:        "PayGateCircuitBreaker",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("circuit breaker state changed from %s to %s", from, to)
		},
	}
	return &Breaker{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Init(ctx context.Context, req InitRequest) (InitResult, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Init(ctx, req)
	})
	if err != nil {
		return InitResult{}, mapBreakerErr(err)
	}
	return v.(InitResult), nil
}

func (b *Breaker) GetState(ctx context.Context, paymentID string, orderID string) (State, error) {
	var st State
	_, err := b.cb.Execute(func() (interface{}, error) {
		var err error
		st, err = b.next.GetState(ctx, paymentID, orderID)
		return nil, err
	})
	return st, mapBreakerErr(err)
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}
	return err
}
