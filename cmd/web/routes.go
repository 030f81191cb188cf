package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arena-gg/tourney/internal/bracket"
	"github.com/arena-gg/tourney/internal/config"
	"github.com/arena-gg/tourney/internal/engine"
	"github.com/arena-gg/tourney/internal/httputil"
	"github.com/arena-gg/tourney/internal/middleware"
	"github.com/arena-gg/tourney/internal/notify"
	"github.com/arena-gg/tourney/internal/service"
	"github.com/arena-gg/tourney/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// bad input is the caller's bug, invariant conflicts are a business-rule
// clash, and both surface as-is to the admin UI.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows) || engine.IsNotFound(err):
		httputil.NotFound(w, err.Error(), err)
	case engine.IsValidation(err):
		httputil.BadRequest(w, err.Error(), err)
	case engine.IsInvariant(err):
		httputil.Conflict(w, err.Error(), err)
	default:
		httputil.InternalServerError(w, "operation failed", err)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func newRouter(db *sqlx.DB, sessionManager *scs.SessionManager, dispatcher notify.Dispatcher, cfg config.Config) http.Handler {
	tournamentStore := store.NewTournamentStore(db)
	ratingStore := store.NewRatingStore(db)
	predictionStore := store.NewPredictionStore(db)
	userStore := store.NewUserStore(db)

	tournamentService := service.NewTournamentService(db, tournamentStore)
	matchService := service.NewMatchService(db, tournamentStore, ratingStore, predictionStore, dispatcher, cfg.EloKFactor)
	predictionService := service.NewPredictionService(db, tournamentStore, predictionStore)
	userService := service.NewUserService(db, userStore)

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessionManager, userStore))

		r.Get("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			tournaments, err := tournamentService.GetTournamentsForUser(r.Context())
			if err != nil {
				httputil.InternalServerError(w, "Failed to get tournaments", err)
				return
			}
			httputil.JSON(w, http.StatusOK, tournaments)
		})

		r.Post("/tournaments", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Name               string `json:"name"`
				MaxTeams           int    `json:"max_teams"`
				TeamSize           *int   `json:"team_size"`
				SeedingMethod      string `json:"seeding_method"`
				HasQualifier       bool   `json:"has_qualifier"`
				QualifierMatches   int    `json:"qualifier_matches"`
				QualifierMinPoints int    `json:"qualifier_min_points"`
				RequireRank        bool   `json:"require_rank"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if body.Name == "" || len(body.Name) > 100 {
				httputil.BadRequest(w, "Tournament name must be 1-100 characters", nil)
				return
			}

			id, err := tournamentService.CreateTournament(r.Context(), service.TournamentInput{
				Name:               body.Name,
				MaxTeams:           body.MaxTeams,
				TeamSize:           body.TeamSize,
				SeedingMethod:      bracket.SeedingMethod(body.SeedingMethod),
				HasQualifier:       body.HasQualifier,
				QualifierMatches:   body.QualifierMatches,
				QualifierMinPoints: body.QualifierMinPoints,
				RequireRank:        body.RequireRank,
			})
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, map[string]string{"id": id.String()})
		})

		r.Post("/tournaments/{id}/registration", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.OpenRegistration(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/entries", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				Name   string     `json:"name"`
				UserID *uuid.UUID `json:"user_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}
			if body.Name == "" || len(body.Name) > 50 {
				httputil.BadRequest(w, "Entry name must be 1-50 characters", nil)
				return
			}

			entryID, err := tournamentService.RegisterEntry(r.Context(), id, service.EntryInput{
				Name:   body.Name,
				UserID: body.UserID,
			})
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, map[string]string{"id": entryID.String()})
		})

		r.Post("/tournaments/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.StartTournament(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/qualifier/complete", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.CompleteQualifier(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/revert", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.RevertToRegistration(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/tournaments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.CancelTournament(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Delete("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := tournamentService.DeleteTournament(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/matches/{id}/start", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			match, err := matchService.StartMatch(r.Context(), id)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, match)
		})

		r.Post("/matches/{id}/result", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				HomeScore int        `json:"home_score"`
				AwayScore int        `json:"away_score"`
				WinnerID  *uuid.UUID `json:"winner_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			data, err := matchService.RecordResult(r.Context(), id, body.HomeScore, body.AwayScore, body.WinnerID)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, data)
		})

		r.Post("/matches/{id}/qualifier-result", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				HomeScore int `json:"home_score"`
				AwayScore int `json:"away_score"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			data, err := matchService.RecordQualifierResult(r.Context(), id, body.HomeScore, body.AwayScore)
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusOK, data)
		})

		r.Post("/matches/{id}/reset", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			if err := matchService.ResetMatch(r.Context(), id); err != nil {
				writeEngineError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		r.Post("/matches/{id}/predictions", func(w http.ResponseWriter, r *http.Request) {
			id, ok := parseID(w, r)
			if !ok {
				return
			}
			var body struct {
				HomeScore *int       `json:"home_score"`
				AwayScore *int       `json:"away_score"`
				WinnerID  *uuid.UUID `json:"winner_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				httputil.BadRequest(w, "Invalid request body", err)
				return
			}

			predictionID, err := predictionService.SubmitPrediction(r.Context(), id, service.PredictionInput{
				HomeScore: body.HomeScore,
				AwayScore: body.AwayScore,
				WinnerID:  body.WinnerID,
			})
			if err != nil {
				writeEngineError(w, err)
				return
			}
			httputil.JSON(w, http.StatusCreated, map[string]string{"id": predictionID.String()})
		})
	})

	r.Get("/tournaments/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, err := tournamentService.GetTournamentData(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "Tournament not found", err)
				return
			}
			httputil.InternalServerError(w, "Failed to get tournament", err)
			return
		}
		httputil.JSON(w, http.StatusOK, data)
	})

	r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
		data, err := matchService.GetMatchData(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				httputil.NotFound(w, "Match not found", err)
				return
			}
			httputil.InternalServerError(w, "Failed to get match data", err)
			return
		}
		httputil.JSON(w, http.StatusOK, data)
	})

	r.Get("/matches/{id}/predictions", func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		predictions, err := predictionService.ListMatchPredictions(r.Context(), id)
		if err != nil {
			httputil.InternalServerError(w, "Failed to get predictions", err)
			return
		}
		httputil.JSON(w, http.StatusOK, predictions)
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := userService.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create user", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())

		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := userService.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		sessionManager.Put(r.Context(), "userID", user.ID.String())
		httputil.JSON(w, http.StatusOK, map[string]string{"id": user.ID.String()})
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Destroy(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
