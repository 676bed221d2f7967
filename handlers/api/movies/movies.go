package movies

import (
	"errors"
	"net/http"
	"time"

	"watchparty/core"
	"watchparty/middleware"
	"watchparty/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// maxUploadBytes caps a single movie upload.
const maxUploadBytes = 2 << 30 // 2 GiB

// HandleList returns the catalog.
func HandleList(store stores.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		movies, err := store.ListMovies(r.Context())
		if err != nil {
			logrus.WithError(err).Error("Failed to list movies")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to list movies"})
			return
		}
		if movies == nil {
			movies = []*core.Movie{}
		}
		render.JSON(w, r, movies)
	}
}

// HandleUpload accepts a multipart upload: the binary under field "movie"
// and a "title". The blob goes to the blob store, the metadata to the
// catalog store. No transcoding happens here; the binary is served as
// uploaded.
func HandleUpload(store stores.Store, blobs core.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFrom(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, map[string]string{"error": "User claims not found"})
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("movie")
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "A video file is required under field 'movie'"})
			return
		}
		defer file.Close()

		title := r.FormValue("title")
		if title == "" {
			title = r.FormValue("tittle") // legacy client misspelling
		}
		if title == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "A title is required"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "video/mp4"
		}

		movie := &core.Movie{
			ID:          ulid.Make().String(),
			Title:       title,
			ContentType: contentType,
			Size:        header.Size,
			UploadedBy:  claims.Subject,
			CreatedAt:   time.Now(),
		}

		if err := blobs.PutBlob(r.Context(), movie.ID, file, header.Size, contentType); err != nil {
			logrus.WithError(err).WithField("movie_id", movie.ID).Error("Failed to store movie blob")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to store movie"})
			return
		}
		if err := store.CreateMovie(r.Context(), movie); err != nil {
			logrus.WithError(err).WithField("movie_id", movie.ID).Error("Failed to store movie metadata")
			blobs.DeleteBlob(r.Context(), movie.ID)
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to store movie"})
			return
		}

		logrus.WithFields(logrus.Fields{
			"movie_id": movie.ID,
			"title":    movie.Title,
			"size":     movie.Size,
			"user_id":  claims.Subject,
		}).Info("Movie uploaded")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{"movie": movie})
	}
}

// HandleStream serves a movie's binary with byte-range support so the video
// element can scrub.
func HandleStream(store stores.Store, blobs core.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		movie, err := store.FindMovieByID(r.Context(), id)
		if err != nil {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Movie not found"})
			return
		}

		blob, _, err := blobs.GetBlob(r.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, map[string]string{"error": "Movie data not found"})
				return
			}
			logrus.WithError(err).WithField("movie_id", id).Error("Failed to open movie blob")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to stream movie"})
			return
		}
		defer blob.Close()

		w.Header().Set("Content-Type", movie.ContentType)
		http.ServeContent(w, r, movie.Title, movie.CreatedAt, blob)
	}
}
