package mail

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// BreakerSender stops calling a failing transport for a while after repeated
// errors. Open-breaker errors reach the dispatcher, which retries later.
type BreakerSender struct {
	next Sender
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerSender(next Sender, name string, log *logrus.Logger) *BreakerSender {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("mail circuit breaker state changed")
		},
	})
	return &BreakerSender{next: next, cb: cb}
}

func (s *BreakerSender) Send(ctx context.Context, msg Message) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Send(ctx, msg)
	})
	return err
}
