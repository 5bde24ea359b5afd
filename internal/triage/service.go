package triage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/triageline/internal/classify"
)

// ServiceHooks receives callbacks for instrumentation. Nil funcs are skipped.
type ServiceHooks struct {
	OnClassify     func(priority classify.Priority, riskScore int)
	OnInvalidInput func(field string)
	OnAdmit        func(priority classify.Priority)
	OnDischarge    func()
	OnNotify       func(err error)
	OnPublish      func(eventType EventType, err error)
}

// Options configures the optional collaborators of a Service.
type Options struct {
	Classifier *classify.Classifier // defaults to classify.Default()
	Advisor    *Advisor             // nil disables advisory notes
	Notifier   Notifier             // nil disables notifications
	Publisher  Publisher            // nil disables events
	// NotifyAt is the least urgent priority that still triggers a
	// notification. Zero means P2.
	NotifyAt classify.Priority
	Hooks    ServiceHooks
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the business boundary for intake operations.
type Service struct {
	store      Store
	classifier *classify.Classifier
	advisor    *Advisor
	notifier   Notifier
	publisher  Publisher
	notifyAt   classify.Priority
	hooks      ServiceHooks
	now        func() time.Time
	logger     log.Logger

	// mu serialises read-modify-write against discharge
	mu sync.Mutex
	wg sync.WaitGroup
}

// NewService creates a new intake service.
func NewService(store Store, logger log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	s := &Service{
		store:      store,
		classifier: opts.Classifier,
		advisor:    opts.Advisor,
		notifier:   opts.Notifier,
		publisher:  opts.Publisher,
		notifyAt:   opts.NotifyAt,
		hooks:      opts.Hooks,
		now:        opts.Now,
		logger:     logger,
	}
	if s.classifier == nil {
		s.classifier = classify.Default()
	}
	if !s.notifyAt.Valid() {
		s.notifyAt = classify.P2
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Classify runs the classifier without admitting anyone.
func (s *Service) Classify(_ context.Context, v classify.VitalSigns, symptoms string) (classify.Result, error) {
	res, err := s.classifier.Classify(v, symptoms)
	if err != nil {
		s.invalid(err)
		return classify.Result{}, err
	}
	if s.hooks.OnClassify != nil {
		s.hooks.OnClassify(res.Priority, res.RiskScore)
	}
	return res, nil
}

// ParseVitals validates a vitals form as received from a client and counts
// rejections the same way Classify does.
func (s *Service) ParseVitals(f classify.VitalsForm) (classify.VitalSigns, error) {
	v, err := f.Vitals()
	if err != nil {
		s.invalid(err)
		return classify.VitalSigns{}, err
	}
	return v, nil
}

// RejectInput reports a client field that failed validation outside the
// classifier, e.g. a JSON type mismatch or an out-of-range age.
func (s *Service) RejectInput(field, reason string) error {
	err := &classify.InvalidInputError{Field: field, Reason: reason}
	s.invalid(err)
	return err
}

func (s *Service) invalid(err error) {
	var ie *classify.InvalidInputError
	if errors.As(err, &ie) && s.hooks.OnInvalidInput != nil {
		s.hooks.OnInvalidInput(ie.Field)
	}
}

// Admit classifies the intake, stores the new patient and starts the
// background follow-up. The returned patient is a copy of what was stored.
func (s *Service) Admit(ctx context.Context, in *Intake) (*Patient, error) {
	res, err := s.Classify(ctx, in.Vitals, in.Symptoms)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:             ulid.Make().String(),
		Name:           strings.TrimSpace(in.Name),
		Age:            in.Age,
		Gender:         strings.TrimSpace(in.Gender),
		Vitals:         in.Vitals,
		Symptoms:       in.Symptoms,
		ArrivalTime:    s.now().UTC(),
		Priority:       res.Priority,
		RiskScore:      res.RiskScore,
		Explanation:    res.Explanation,
		Flags:          res.Flags,
		Contributions:  res.Contributions,
		AdvisoryStatus: StatusNone,
	}
	if s.advisor != nil {
		p.AdvisoryStatus = StatusPending
	}

	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("store patient: %w", err)
	}
	if s.hooks.OnAdmit != nil {
		s.hooks.OnAdmit(p.Priority)
	}

	s.logger.Info(ctx, "patient admitted",
		"patient_id", p.ID,
		"priority", p.Priority.String(),
		"risk_score", p.RiskScore,
	)

	// pass only the ID so the goroutine never shares the caller's pointer
	s.wg.Add(1)
	go s.followUp(context.WithoutCancel(ctx), p.ID)

	cp := *p
	return &cp, nil
}

// Get retrieves a patient by ID, with their current queue position. Stores
// that implement Positioner answer the position directly; others fall back
// to ranking the full queue.
func (s *Service) Get(ctx context.Context, id string) (*Patient, bool, error) {
	if ps, ok := s.store.(Positioner); ok {
		p, found, err := ps.Get(ctx, id)
		if err != nil {
			return nil, false, fmt.Errorf("get patient: %w", err)
		}
		if !found {
			return nil, false, nil
		}
		ahead, err := ps.Ahead(ctx, p)
		if err != nil {
			return nil, false, fmt.Errorf("queue position: %w", err)
		}
		p.Position = ahead + 1
		return p, true, nil
	}

	queue, err := s.Queue(ctx, "")
	if err != nil {
		return nil, false, err
	}
	for _, p := range queue {
		if p.ID == id {
			return p, true, nil
		}
	}
	return nil, false, nil
}

// Queue returns the waiting patients most urgent first, ties broken by
// arrival time and then ID. Positions are assigned before filtering, so a
// search result still shows each patient's place in the full queue.
func (s *Service) Queue(ctx context.Context, query string) ([]*Patient, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	slices.SortFunc(all, CompareQueue)
	for i, p := range all {
		p.Position = i + 1
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return all, nil
	}
	out := all[:0]
	for _, p := range all {
		if matches(p, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Discharge removes a patient from the queue.
func (s *Service) Discharge(ctx context.Context, id string) (bool, error) {
	ok, err := s.remove(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if s.hooks.OnDischarge != nil {
		s.hooks.OnDischarge()
	}
	s.logger.Info(ctx, "patient discharged", "patient_id", id)
	return true, nil
}

// remove deletes the patient and publishes the discharged event while
// holding mu, so it cannot overtake the follow-up's events.
func (s *Service) remove(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return false, fmt.Errorf("get patient: %w", err)
	}
	if !ok {
		return false, nil
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete patient: %w", err)
	}
	if deleted {
		s.publish(ctx, EventDischarged, p)
	}
	return deleted, nil
}

// Wait blocks until all background follow-ups have finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) followUp(ctx context.Context, id string) {
	defer s.wg.Done()

	L := s.logger.With("patient_id", id)

	p, ok, err := s.update(ctx, id, EventAdmitted, nil)
	if err != nil {
		L.Error(ctx, err, "failed to fetch patient for follow-up")
		return
	}
	if !ok {
		L.Info(ctx, "patient discharged before follow-up")
		return
	}

	if s.notifier != nil && p.HighRisk(s.notifyAt) {
		err := s.notifier.Notify(ctx, p)
		if err != nil {
			L.Error(ctx, err, "notification failed")
		}
		if s.hooks.OnNotify != nil {
			s.hooks.OnNotify(err)
		}
	}

	if s.advisor == nil {
		return
	}

	p, ok, err = s.update(ctx, id, "", func(p *Patient) {
		p.AdvisoryStatus = StatusInProgress
	})
	if err != nil {
		L.Error(ctx, err, "failed to update advisory status to in_progress")
		return
	}
	if !ok {
		L.Info(ctx, "patient discharged before advisory started")
		return
	}

	adv := s.advisor.Run(ctx, p)

	var advised EventType
	if adv.Status == StatusComplete {
		advised = EventAdvised
	}
	_, ok, err = s.update(ctx, id, advised, func(p *Patient) {
		p.AdvisoryStatus = adv.Status
		p.Advisory = adv.Text
		p.AdvisoryModel = adv.Model
		p.AdvisoryTokens = adv.InputTokens + adv.OutputTokens
		p.AdvisoryCompletedAt = adv.CompletedAt
	})
	if err != nil {
		L.Error(ctx, err, "failed to persist advisory")
		return
	}
	if !ok {
		L.Info(ctx, "patient discharged before advisory completed")
	}
}

// update applies fn to the stored patient and writes it back, then publishes
// event if one is given. A nil fn skips the write. Everything happens under
// mu, so a patient discharged in the meantime stays deleted (ok is false)
// and per-patient events keep their lifecycle order.
func (s *Service) update(ctx context.Context, id string, event EventType, fn func(*Patient)) (*Patient, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok, err := s.store.Get(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}
	if fn != nil {
		fn(p)
		if err := s.store.Put(ctx, p); err != nil {
			return nil, false, err
		}
	}
	if event != "" {
		s.publish(ctx, event, p)
	}
	return p, true, nil
}

func (s *Service) publish(ctx context.Context, t EventType, p *Patient) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, &Event{
		Type:      t,
		PatientID: p.ID,
		Priority:  p.Priority,
		RiskScore: p.RiskScore,
		At:        s.now().UTC(),
	})
	if err != nil {
		s.logger.Error(ctx, err, "failed to publish event", "type", string(t), "patient_id", p.ID)
	}
	if s.hooks.OnPublish != nil {
		s.hooks.OnPublish(t, err)
	}
}

// CompareQueue orders patients most urgent first, then by arrival time,
// then by ID.
func CompareQueue(a, b *Patient) int {
	if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
		return c
	}
	if c := a.ArrivalTime.Compare(b.ArrivalTime); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func matches(p *Patient, query string) bool {
	return strings.Contains(strings.ToLower(p.Name), query) ||
		strings.Contains(strings.ToLower(p.Symptoms), query) ||
		strings.Contains(strings.ToLower(p.ID), query)
}
