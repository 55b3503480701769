package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/pokedraft/pokedraft-backend/internal/broadcast"
	"github.com/pokedraft/pokedraft-backend/internal/draft"
	"github.com/pokedraft/pokedraft-backend/internal/ws"
)

func SetupRoutes(svc *draft.Service, hub *broadcast.Hub, log *zap.Logger) http.Handler {
	a := NewAPI(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(hub, log))

	r.Route("/contests", func(r chi.Router) {
		r.Post("/", a.createContest)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getContest)
			r.Post("/start", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
				return svc.StartContest(req.Context(), caller, id)
			}))
			r.Post("/pick", a.mutation(a.pick))
			r.Post("/nominate", a.mutation(a.nominate))
			r.Post("/bid", a.mutation(a.bid))
			r.Post("/settle", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
				return svc.Settle(req.Context(), caller, id)
			}))
			r.Route("/admin", func(r chi.Router) {
				r.Post("/pause", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
					return svc.Pause(req.Context(), caller, id)
				}))
				r.Post("/resume", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
					return svc.Resume(req.Context(), caller, id)
				}))
				r.Post("/skip", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
					return svc.Skip(req.Context(), caller, id)
				}))
				r.Post("/undo", a.mutation(func(req *http.Request, caller, id string) (*draft.TurnInfo, error) {
					return svc.Undo(req.Context(), caller, id)
				}))
			})
		})
	})
	return r
}
