// Package notify delivers settlement lifecycle events to external consumers.
package notify

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/kaifufi/swap-sdk-go/events"
)

// LogSink writes every event to a logger
type LogSink struct {
	logger logrus.FieldLogger
}

var _ events.Sink = (*LogSink)(nil)

func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger.WithField("component", "events")}
}

func (s *LogSink) Publish(_ context.Context, ev events.Event) error {
	s.logger.WithFields(eventFields(ev)).Info(ev.Name())
	return nil
}

func eventFields(ev events.Event) logrus.Fields {
	switch e := ev.(type) {
	case *events.AuthorizeEvent:
		return logrus.Fields{"approver": e.Approver.Hex(), "delegate": e.Delegate.Hex(), "expiry": e.Expiry}
	case *events.RevokeEvent:
		return logrus.Fields{"approver": e.Approver.Hex(), "delegate": e.Delegate.Hex()}
	case *events.SwapEvent:
		return logrus.Fields{
			"take_id":         e.TakeID,
			"kill_id":         e.KillID,
			"maker":           e.Maker.Hex(),
			"maker_token":     e.MakerToken.Hex(),
			"maker_param":     e.MakerParam,
			"taker":           e.Taker.Hex(),
			"taker_token":     e.TakerToken.Hex(),
			"taker_param":     e.TakerParam,
			"affiliate":       e.Affiliate.Hex(),
			"affiliate_token": e.AffiliateToken.Hex(),
			"affiliate_param": e.AffiliateParam,
		}
	case *events.CancelEvent:
		return logrus.Fields{"id": e.ID, "maker": e.Maker.Hex()}
	default:
		return logrus.Fields{}
	}
}

// Fanout publishes to every sink and reports all failures together
type Fanout []events.Sink

var _ events.Sink = Fanout(nil)

func (f Fanout) Publish(ctx context.Context, ev events.Event) error {
	var result *multierror.Error
	for _, sink := range f {
		if err := sink.Publish(ctx, ev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	recorded []events.Event
}

var _ events.Sink = (*Recorder)(nil)

func (r *Recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, ev)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.recorded...)
}

// Reset drops the recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = nil
}
