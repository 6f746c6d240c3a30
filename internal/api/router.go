// Package api exposes medications over HTTP for clients other than the bot.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"medication-tracker/internal/models"
)

// Store is the persistence the API needs. *storage.DB implements it.
type Store interface {
	UpsertUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)

	GetMedications(ctx context.Context, userID string) ([]models.Medication, error)
	GetMedication(ctx context.Context, userID, medID string) (models.Medication, error)
	SaveMedications(ctx context.Context, userID string, meds []models.Medication) error
	AddMedication(ctx context.Context, userID string, m models.Medication) error
	UpdateMedication(ctx context.Context, userID string, m models.Medication) error
	DeleteMedication(ctx context.Context, userID, medID string) error
}

type Options struct {
	Store Store
	Clock clockwork.Clock // nil means the real clock
	Log   *zap.SugaredLogger
}

type server struct {
	store Store
	clock clockwork.Clock
	log   *zap.SugaredLogger
}

func NewRouter(opts Options) http.Handler {
	s := &server{store: opts.Store, clock: opts.Clock, log: opts.Log}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	s.log = s.log.With("service", "api")

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(AuthContext)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Use(requireSelf)

		// profile upsert works before the user exists
		ur.Put("/", s.putUser)

		ur.Group(func(gr chi.Router) {
			gr.Use(s.loadUser)

			gr.Get("/", s.getUser)
			gr.Get("/medication-names", s.listNames)

			gr.Route("/medications", func(mr chi.Router) {
				mr.Get("/", s.listMedications)
				mr.Put("/", s.saveMedications)
				mr.Post("/", s.createMedication)

				mr.Route("/{medID}", func(one chi.Router) {
					one.Get("/", s.getMedication)
					one.Put("/", s.updateMedication)
					one.Delete("/", s.deleteMedication)
					one.Post("/doses", s.recordDose)
					one.Get("/progress", s.progress)
					one.Get("/history", s.history)
					one.Get("/share", s.share)
				})
			})
		})
	})

	return r
}
