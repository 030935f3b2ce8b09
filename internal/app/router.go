package app

import (
	"net/http"
	"time"

	"examprep/internal/app/apiresp"
	"examprep/internal/app/observability"
	"examprep/internal/assessment"
	"examprep/internal/auth"
	"examprep/internal/masterdata"
	"examprep/internal/model"
	"examprep/internal/question"
	"examprep/internal/report"
	"examprep/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// NewAuthLimiter picks the login rate limiter. With REDIS_ADDR set the
// windows live in redis so every instance shares them. The returned func
// releases the redis client.
func NewAuthLimiter(cfg Config) (RateLimiter, func() error) {
	if cfg.RedisAddr == "" {
		return NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute), func() error { return nil }
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisRateLimiter(client, cfg.AuthRateLimitPerMin, time.Minute), client.Close
}

// NewRouter wires every API route. A nil limiter falls back to the
// in-memory one.
func NewRouter(cfg Config, dbConn *sqlx.DB, limiter RateLimiter) http.Handler {
	if limiter == nil {
		limiter = NewIPRateLimiter(cfg.AuthRateLimitPerMin, time.Minute)
	}

	st := store.New(dbConn)
	metrics := observability.NewCollector(dbConn.DB)

	authHandler := auth.NewHandler(auth.NewService(st, auth.ServiceConfig{
		TokenSecret: cfg.JWTSecret,
		TokenTTL:    cfg.TokenTTL(),
	}))
	masterHandler := masterdata.NewHandler(masterdata.NewService(st))
	questionHandler := question.NewHandler(question.NewService(st))
	assessmentHandler := assessment.NewHandler(assessment.NewService(st))
	reportHandler := report.NewHandler(report.NewService(st))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestIDHeader)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{apiresp.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
	r.Use(BodyLimitMiddleware(cfg.BodyLimitBytes))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			apiresp.WriteError(w, r, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		apiresp.WriteOK(w, r, http.StatusOK, []any{}, "ok")
	})
	r.Get("/metrics", metrics.MetricsHandler)

	staff := auth.RequireRoles(model.UserTypeAdmin, model.UserTypeTeacher)

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", authHandler.Register)
		api.With(RateLimitMiddleware(limiter)).Post("/auth/login", authHandler.Login)

		api.Group(func(secure chi.Router) {
			secure.Use(authHandler.RequireAuth)
			secure.Get("/auth/me", authHandler.Me)

			secure.Route("/user", func(u chi.Router) {
				u.Use(auth.RequireRoles(model.UserTypeAdmin))
				u.Post("/", authHandler.CreateUser)
				u.Get("/", authHandler.ListUsers)
				u.Get("/export", authHandler.ExportUsers)
				u.Post("/import", authHandler.ImportUsers)
				u.Get("/{id}", authHandler.GetUser)
				u.Put("/{id}", authHandler.UpdateUser)
				u.Patch("/{id}/role", authHandler.ChangeRole)
				u.Patch("/{id}/toggle-active", authHandler.ToggleActive)
			})

			secure.Route("/subject", func(s chi.Router) {
				s.Get("/", masterHandler.ListSubjects)
				s.Get("/{id}", masterHandler.GetSubject)
				s.With(staff).Post("/", masterHandler.CreateSubject)
				s.With(staff).Put("/{id}", masterHandler.UpdateSubject)
				s.With(staff).Delete("/{id}", masterHandler.DeleteSubject)
			})

			secure.Route("/topic", func(t chi.Router) {
				t.Get("/", masterHandler.ListTopics)
				t.Get("/{id}", masterHandler.GetTopic)
				t.With(staff).Post("/", masterHandler.CreateTopic)
				t.With(staff).Put("/{id}", masterHandler.UpdateTopic)
				t.With(staff).Delete("/{id}", masterHandler.DeleteTopic)
			})

			secure.Route("/exam", func(e chi.Router) {
				e.Get("/", masterHandler.ListExams)
				e.Get("/subject", masterHandler.ListExamSubjects)
				e.Get("/{id}", masterHandler.GetExam)
				e.With(staff).Post("/", masterHandler.CreateExam)
				e.With(staff).Post("/subject", masterHandler.CreateExamSubject)
				e.With(staff).Delete("/subject/{id}", masterHandler.DeleteExamSubject)
				e.With(staff).Put("/{id}", masterHandler.UpdateExam)
				e.With(staff).Delete("/{id}", masterHandler.DeleteExam)
			})

			secure.Route("/question", func(q chi.Router) {
				q.Get("/", questionHandler.List)
				q.Get("/{id}", questionHandler.Get)
				q.Group(func(w chi.Router) {
					w.Use(staff)
					w.Post("/", questionHandler.Create)
					w.Post("/import", questionHandler.Import)
					w.Post("/import/xlsx", questionHandler.ImportXLSX)
					w.Get("/export", questionHandler.Export)
					w.Put("/{id}", questionHandler.Update)
					w.Delete("/{id}", questionHandler.Delete)
				})
			})

			secure.Route("/question-translation", func(t chi.Router) {
				t.Get("/", questionHandler.ListTranslations)
				t.Get("/{id}", questionHandler.GetTranslation)
				t.With(staff).Post("/", questionHandler.CreateTranslation)
				t.With(staff).Put("/{id}", questionHandler.UpdateTranslation)
				t.With(staff).Delete("/{id}", questionHandler.DeleteTranslation)
			})

			secure.Route("/question-pool", func(p chi.Router) {
				p.Get("/", questionHandler.ListPoolEntries)
				p.With(staff).Post("/", questionHandler.CreatePoolEntry)
				p.With(staff).Delete("/{id}", questionHandler.DeletePoolEntry)
			})

			secure.Route("/test", func(t chi.Router) {
				t.Get("/", assessmentHandler.ListTests)
				t.Get("/{id}", assessmentHandler.GetTest)
				t.With(staff).Post("/", assessmentHandler.CreateTest)
				t.With(staff).Put("/{id}", assessmentHandler.UpdateTest)
				t.With(staff).Delete("/{id}", assessmentHandler.DeleteTest)
			})

			secure.Route("/test-question", func(t chi.Router) {
				t.Get("/", assessmentHandler.ListTestQuestions)
				t.With(staff).Post("/", assessmentHandler.CreateTestQuestion)
				t.With(staff).Put("/{id}", assessmentHandler.UpdateTestQuestion)
				t.With(staff).Delete("/{id}", assessmentHandler.DeleteTestQuestion)
			})

			secure.Route("/test-attempt", func(a chi.Router) {
				a.Post("/", assessmentHandler.CreateAttempt)
				a.Get("/", assessmentHandler.ListAttempts)
				a.Get("/{id}", assessmentHandler.GetAttempt)
				a.Post("/{id}/submit", assessmentHandler.SubmitAttempt)
				a.With(staff).Put("/{id}", assessmentHandler.UpdateAttempt)
				a.With(staff).Delete("/{id}", assessmentHandler.DeleteAttempt)
			})

			secure.Route("/attempt-answer", func(a chi.Router) {
				a.Post("/", assessmentHandler.CreateAnswer)
				a.Get("/", assessmentHandler.ListAnswers)
				a.Put("/{id}", assessmentHandler.UpdateAnswer)
			})

			secure.Route("/question-log", func(l chi.Router) {
				l.Post("/", assessmentHandler.CreateQuestionLog)
				l.Get("/", assessmentHandler.ListQuestionLogs)
			})

			secure.With(staff).Get("/report/test/{id}", reportHandler.TestSummary)
		})
	})

	return r
}

// requestIDHeader echoes the chi request id on every response, including
// ones not written through apiresp.
func requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			w.Header().Set(apiresp.RequestIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}
