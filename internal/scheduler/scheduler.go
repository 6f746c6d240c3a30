package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"medication-tracker/internal/dose"
	"medication-tracker/internal/models"
)

const (
	// every minute at second 0
	scanSpec = "* * * * *"
	jobName  = "medication-reminders"

	reminderTitle = "Medication Reminder"
)

type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Store is the part of the persistence layer the scanner needs.
type Store interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetMedications(ctx context.Context, userID string) ([]models.Medication, error)
	UpdateMedication(ctx context.Context, userID string, m models.Medication) error
}

// Notifier delivers reminders. Notify may silently drop the message when
// permission was revoked after PermissionGranted returned true.
type Notifier interface {
	PermissionGranted(ctx context.Context, u models.User) bool
	Notify(ctx context.Context, u models.User, n models.Notification) error
}

// Scanner fires a reminder for every medication whose reminder time matches
// the current minute and whose daily quota is not yet met.
type Scanner struct {
	store    Store
	notifier Notifier
	clock    clockwork.Clock
	log      *zap.SugaredLogger

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

func New(store Store, notifier Notifier, clock clockwork.Clock, log *zap.SugaredLogger) *Scanner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{
		store:    store,
		notifier: notifier,
		clock:    clock,
		log:      log.With("component", "scheduler"),
	}
}

// Start arms the once-a-minute job. Calling Start on an armed scanner
// replaces the running job, so at most one is ever active.
func (s *Scanner) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stopLocked(); err != nil {
		return err
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(gocronLogger{s.log}),
	)
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err = sched.NewJob(
		gocron.CronJob(scanSpec, false),
		gocron.NewTask(func() { s.Tick(ctx) }),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return fmt.Errorf("register scan job: %w", err)
	}

	sched.Start()
	s.sched = sched
	s.cancel = cancel
	s.log.Infow("reminder scanner armed", "cron", scanSpec)
	return nil
}

// Stop cancels the job; an idle scanner stays idle.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Scanner) stopLocked() error {
	if s.sched == nil {
		return nil
	}
	s.cancel()
	err := s.sched.Shutdown()
	s.sched = nil
	s.cancel = nil
	s.log.Infow("reminder scanner stopped")
	return err
}

func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return Idle
	}
	return Armed
}

// Tick runs one scan over all users and returns the number of reminders
// handled without error. Failures are logged and never abort the scan.
func (s *Scanner) Tick(ctx context.Context) int {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.log.Errorw("list users", "error", err)
		return 0
	}

	fired := 0
	for _, u := range users {
		if ctx.Err() != nil {
			return fired
		}
		if !s.notifier.PermissionGranted(ctx, u) {
			continue
		}
		fired += s.scanUser(ctx, u)
	}
	return fired
}

func (s *Scanner) scanUser(ctx context.Context, u models.User) int {
	now := s.clock.Now().In(u.Location())

	meds, err := s.store.GetMedications(ctx, u.ID)
	if err != nil {
		s.log.Errorw("load medications", "user_id", u.ID, "error", err)
		return 0
	}

	fired := 0
	for _, m := range Due(meds, now) {
		if err := s.fire(ctx, u, m, dose.DayKey(now)); err != nil {
			s.log.Errorw("reminder failed", "user_id", u.ID, "medication_id", m.ID, "error", err)
			continue
		}
		fired++
	}
	return fired
}

var errPanic = errors.New("panic during delivery")

// fire isolates one medication: a panicking collaborator is turned into an
// error so the remaining medications are still processed.
func (s *Scanner) fire(ctx context.Context, u models.User, m models.Medication, today string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	n := models.Notification{
		Title:        reminderTitle,
		Body:         fmt.Sprintf("It's time to take your %s.", m.Name),
		Sound:        u.Sound,
		MedicationID: m.ID,
	}
	if err := s.notifier.Notify(ctx, u, n); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	s.log.Infow("reminder sent", "user_id", u.ID, "medication_id", m.ID)

	if !u.AutoLog {
		return nil
	}
	updated, err := dose.RecordDose(m, today)
	if err != nil {
		return fmt.Errorf("auto-log: %w", err)
	}
	if err := s.store.UpdateMedication(ctx, u.ID, updated); err != nil {
		return fmt.Errorf("auto-log save: %w", err)
	}
	s.log.Infow("dose auto-logged", "user_id", u.ID, "medication_id", m.ID, "day", today)
	return nil
}

// Due lists, in input order, the medications that should be reminded at
// now: not completed, a reminder at exactly now's minute, and today's quota
// not yet met.
func Due(meds []models.Medication, now time.Time) []models.Medication {
	today := dose.DayKey(now)
	at := dose.TimeOfDay(now)

	var due []models.Medication
	for _, m := range meds {
		if dose.IsCompleted(m) {
			continue
		}
		if !dose.HasReminderAt(m, at) {
			continue
		}
		if dose.DosesTakenToday(m, today) >= m.DosesPerDay {
			continue
		}
		due = append(due, m)
	}
	return due
}
