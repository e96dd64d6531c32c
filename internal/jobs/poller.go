package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jwulff/recut/internal/api"
)

// DefaultInterval is the status poll period.
const DefaultInterval = 3 * time.Second

// StatusFetcher reads a job's status. *api.Client implements it.
type StatusFetcher interface {
	Status(ctx context.Context, jobID string) (api.StatusResponse, error)
}

// Poller waits for a job to settle by polling at a fixed interval.
type Poller struct {
	client   StatusFetcher
	interval time.Duration
	log      logrus.FieldLogger
}

// NewPoller creates a poller. A non-positive interval means DefaultInterval.
func NewPoller(client StatusFetcher, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Poller{client: client, interval: interval, log: log}
}

// Run polls jobID until it completes, fails, or ctx is done. The first poll
// happens one interval after the call. The ticker is stopped on return.
func (p *Poller) Run(ctx context.Context, jobID string) (*Result, error) {
	lc := Lifecycle{}.StartUpload().UploadSucceeded(jobID)
	log := p.log.WithField("job_id", jobID)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		resp, err := p.client.Status(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lc, _ = lc.PollFailed(lc.Generation, err)
			if lc.Polling() {
				log.WithError(err).Warn("status poll failed, retrying")
				continue
			}
			return nil, lc.Err
		}

		lc, _ = lc.Apply(lc.Generation, resp)
		switch lc.Status {
		case Completed:
			log.WithField("segments", len(lc.Result.Segments)).Info("job completed")
			return lc.Result, nil
		case Error:
			log.WithError(lc.Err).Warn("job failed")
			return nil, lc.Err
		default:
			log.WithField("status", resp.Status).Debug("job pending")
		}
	}
}
