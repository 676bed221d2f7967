package rooms

import (
	"encoding/json"
	"errors"
	"net/http"

	"watchparty/core"
	"watchparty/middleware"
	"watchparty/session"
	"watchparty/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	createRequest struct {
		MovieID string `json:"movieId"`
	}

	// roomResponse embeds the catalog movie so the room page can render the
	// title and stream source from one fetch.
	roomResponse struct {
		*core.Room
		Movie *core.Movie `json:"movie,omitempty"`
	}
)

// HandleCreate creates a room for a catalog movie. Requires authentication.
func HandleCreate(dir *session.Directory, store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MovieID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "movieId is required"})
			return
		}

		requester, err := store.FindUserByID(r.Context(), claims.Subject)
		if err != nil {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "Unknown user"})
			return
		}

		room, err := dir.CreateRoom(r.Context(), req.MovieID, requester)
		if err != nil {
			switch {
			case errors.Is(err, core.ErrUnauthorized):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "Not allowed to create a room"})
			case errors.Is(err, core.ErrNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Movie not found"})
			default:
				logrus.WithError(err).Error("Failed to create room")
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, map[string]string{"error": "Failed to create room"})
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{"room": room})
	}
}

// HandleGetByID resolves the legacy id address. The room is never served
// from here; the client is redirected to the canonical token address so the
// two addressing schemes cannot diverge.
func HandleGetByID(dir *session.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		room, err := dir.ResolveByID(r.Context(), id)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Room not found"})
			return
		}
		http.Redirect(w, r, "/api/rooms/token/"+room.InviteToken, http.StatusFound)
	}
}

// HandleGetByToken serves the room by its canonical invite token.
func HandleGetByToken(dir *session.Directory, store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		room, err := dir.ResolveByToken(r.Context(), token)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Invalid or expired room token"})
			return
		}
		render.JSON(w, r, withMovie(r, store, room))
	}
}

// HandleGetByCode resolves the short human-typed room code.
func HandleGetByCode(dir *session.Directory, store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		room, err := dir.ResolveByCode(r.Context(), code)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Room not found"})
			return
		}
		render.JSON(w, r, withMovie(r, store, room))
	}
}

func withMovie(r *http.Request, store stores.Store, room *core.Room) roomResponse {
	resp := roomResponse{Room: room}
	movie, err := store.FindMovieByID(r.Context(), room.MovieID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id":  room.ID,
			"movie_id": room.MovieID,
		}).Warn("Room references a missing movie")
		return resp
	}
	resp.Movie = movie
	return resp
}
