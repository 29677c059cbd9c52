package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tleroy/celcat-fetch/internal/auth"
	"github.com/tleroy/celcat-fetch/internal/event"
	"github.com/tleroy/celcat-fetch/internal/filter"
	"github.com/tleroy/celcat-fetch/internal/parser"
	"github.com/tleroy/celcat-fetch/internal/query"
	"github.com/tleroy/celcat-fetch/internal/transport"
)

// Defaults match the reference deployment limits: Celcat backends tolerate a
// handful of concurrent requests per session and answer well within 30s.
const (
	DefaultConcurrency = 5
	DefaultRetryLimit  = 3
)

// Config configures one Scraper. Zero values fall back to the defaults
// above; Location defaults to UTC and applies when the query carries none.
type Config struct {
	BaseURL     string
	Credentials auth.Credentials

	Timeout       time.Duration
	Concurrency   int
	RetryLimit    int
	MaxWindowSpan time.Duration
	Location      *time.Location

	// IncludeDetails fetches the sidebar detail for every event, trading
	// one extra request per event for authoritative room/staff/notes data.
	IncludeDetails bool

	// Filter, when set, is applied to the normalized events.
	Filter *filter.Config
}

// Scraper owns the authenticated session and drives the fetch pipeline.
type Scraper struct {
	cfg    Config
	client *transport.Client
	auth   *auth.Authenticator
}

// New validates the configuration and builds the transport and
// authenticator it shares across fetches.
func New(cfg Config) (*Scraper, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RetryLimit <= 0 {
		cfg.RetryLimit = DefaultRetryLimit
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	client, err := transport.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("creating transport: %w", err)
	}

	return &Scraper{
		cfg:    cfg,
		client: client,
		auth:   auth.New(client, cfg.Credentials),
	}, nil
}

// Status classifies the outcome of one request window.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// WindowStatus reports what happened to one window of the query.
type WindowStatus struct {
	Window query.Window
	Status Status
	Err    error
}

// Result is the best-effort outcome of a fetch: every event that could be
// retrieved, the per-window accounting, and the records that were dropped as
// unparseable.
type Result struct {
	Events      []event.Event
	Windows     []WindowStatus
	ParseErrors []parser.ParseError
}

// Failed returns the windows that did not succeed.
func (r *Result) Failed() []WindowStatus {
	var failed []WindowStatus
	for _, ws := range r.Windows {
		if ws.Status != StatusSucceeded {
			failed = append(failed, ws)
		}
	}
	return failed
}

// FetchSchedule runs the whole pipeline for one query. Only an invalid query
// or a failed login aborts the call; anything after that degrades to window
// failures recorded in the Result.
func (s *Scraper) FetchSchedule(ctx context.Context, q query.Query) (*Result, error) {
	if q.Location == nil {
		q.Location = s.cfg.Location
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	session, err := s.auth.Login(ctx)
	if err != nil {
		return nil, fmt.Errorf("establishing session: %w", err)
	}

	windows := query.Split(q.Start, q.End, s.cfg.MaxWindowSpan)
	log.WithFields(log.Fields{
		"windows":   len(windows),
		"resources": len(q.ResourceIDs),
		"start":     q.Start.Format("2006-01-02"),
		"end":       q.End.Format("2006-01-02"),
	}).Info("fetching schedule")

	statuses := make([]WindowStatus, len(windows))
	windowRecords := make([][]parser.RawEvent, len(windows))
	windowParseErrs := make([][]parser.ParseError, len(windows))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, w := range windows {
		w := w
		g.Go(func() error {
			// Per-worker session copy: Refresh resolves staleness against
			// the authenticator's current session, so workers never write
			// to shared state.
			sess := session
			recs, perrs, err := s.fetchWindow(ctx, &sess, w, q)
			if err != nil {
				status := StatusFailed
				if ctx.Err() != nil {
					status = StatusCancelled
				}
				statuses[w.Index] = WindowStatus{Window: w, Status: status, Err: err}
				log.WithFields(log.Fields{
					"window": w.Index,
					"status": status,
				}).WithError(err).Warn("window fetch failed")
				return nil
			}
			statuses[w.Index] = WindowStatus{Window: w, Status: StatusSucceeded}
			windowRecords[w.Index] = recs
			windowParseErrs[w.Index] = perrs
			return nil
		})
	}
	g.Wait()

	var records []parser.RawEvent
	var parseErrs []parser.ParseError
	for i := range windows {
		records = append(records, windowRecords[i]...)
		parseErrs = append(parseErrs, windowParseErrs[i]...)
	}

	if s.cfg.IncludeDetails && ctx.Err() == nil {
		s.enrich(ctx, session, records)
	}

	events := event.Normalize(records)
	if s.cfg.Filter != nil {
		events = s.cfg.Filter.Apply(events)
	}

	log.WithFields(log.Fields{
		"events":       len(events),
		"parse_errors": len(parseErrs),
	}).Info("schedule fetch finished")

	return &Result{Events: events, Windows: statuses, ParseErrors: parseErrs}, nil
}

// fetchWindow retrieves and parses one window, retrying transient failures
// with exponential backoff. The session pointer is shared between workers;
// re-authentication goes through the single-flight Refresh so concurrent
// expiries trigger exactly one new login.
func (s *Scraper) fetchWindow(ctx context.Context, session **auth.Session, w query.Window, q query.Query) ([]parser.RawEvent, []parser.ParseError, error) {
	spec := query.CalendarRequest(w, q.ResourceIDs)

	var body []byte
	refreshed := false

	operation := func() error {
		resp, err := s.doAuthed(ctx, spec, session, &refreshed)
		if err != nil {
			if transport.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = resp.Body
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.cfg.RetryLimit)),
		ctx,
	)
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, nil, err
	}

	recs, perrs, err := parser.ParseCalendarData(body, w.Index, q.Location)
	if err != nil {
		return nil, nil, err
	}
	return recs, perrs, nil
}

// doAuthed issues one request and recovers from a session challenge at most
// once: refresh through the authenticator's single-flight login, then retry
// the same request. A challenge after refresh surfaces as ErrSessionExpired.
func (s *Scraper) doAuthed(ctx context.Context, spec transport.RequestSpec, session **auth.Session, refreshed *bool) (*transport.Response, error) {
	resp, err := s.client.Do(ctx, spec)
	if err != nil && !auth.IsChallenge(resp) {
		return nil, err
	}

	if !auth.IsChallenge(resp) {
		return resp, nil
	}

	if *refreshed {
		return nil, auth.ErrSessionExpired
	}
	*refreshed = true

	fresh, err := s.auth.Refresh(ctx, *session)
	if err != nil {
		return nil, err
	}
	*session = fresh

	resp, err = s.client.Do(ctx, spec)
	if err != nil {
		if auth.IsChallenge(resp) {
			return nil, auth.ErrSessionExpired
		}
		return nil, err
	}
	if auth.IsChallenge(resp) {
		return nil, auth.ErrSessionExpired
	}
	return resp, nil
}

// enrich fetches sidebar details for records that carry a service-side
// identifier. Detail failures only degrade that record back to its
// description-derived fields.
func (s *Scraper) enrich(ctx context.Context, session *auth.Session, records []parser.RawEvent) {
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for i := range records {
		if records[i].ID == "" {
			continue
		}
		rec := &records[i]
		g.Go(func() error {
			sess := session
			refreshed := false
			resp, err := s.doAuthed(ctx, query.SideBarRequest(rec.ID), &sess, &refreshed)
			if err != nil {
				log.WithField("event_id", rec.ID).WithError(err).Debug("sidebar fetch failed")
				return nil
			}
			detail, err := parser.ParseSideBar(rec.ID, resp.Body)
			if err != nil {
				log.WithField("event_id", rec.ID).WithError(err).Debug("sidebar parse failed")
				return nil
			}
			applyDetail(rec, detail)
			return nil
		})
	}
	g.Wait()
}

func applyDetail(rec *parser.RawEvent, detail *parser.Detail) {
	if len(detail.Rooms) > 0 {
		rec.Rooms = detail.Rooms
	}
	if len(detail.Professors) > 0 {
		rec.Professors = detail.Professors
	}
	if detail.Category != "" {
		rec.Category = detail.Category
	}
	if detail.Notes != "" {
		rec.Notes = detail.Notes
	}
}
