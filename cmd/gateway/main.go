package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sioemit"
	"sioemit/httperror"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// target is the part of a request body shared by every endpoint.
type target struct {
	Namespace string   `json:"namespace"`
	Rooms     []string `json:"rooms"`
	Except    []string `json:"except"`
}

type emitBody struct {
	target
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomsBody struct {
	target
	ChangeRooms []string `json:"change_rooms"`
}

func main() {
	ctx := context.Background()

	log.Logger = log.Output(sioemit.LogOut{})

	config, err := sioemit.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read config")
	}

	rdb := redis.NewClient(&redis.Options{Addr: config.RedisURL})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	defer rdb.Close()

	driver := sioemit.NewRedisDriver(rdb)

	// base emitter the handlers fork per request
	emitter := func(t target) sioemit.Emitter {
		e := config.Emitter()
		if t.Namespace != "" {
			e = e.Of(t.Namespace)
		}
		return e.To(t.Rooms...).Except(t.Except...)
	}

	r := NewRouter()
	r.Use(middleware.Logger)

	r.Get("/_healthz", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		w.WriteHeader(http.StatusOK)
		return nil
	})

	r.Get("/version", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		w.Write([]byte(sioemit.Version))
		return nil
	})

	r.Post("/emit", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		var body emitBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return httperror.BadRequestWithError("invalid request body", err)
		}

		if body.Event == "" {
			return httperror.BadRequest("missing event name")
		}

		var msg any
		if len(body.Data) > 0 {
			if err := json.Unmarshal(body.Data, &msg); err != nil {
				return httperror.BadRequestWithError("invalid data field", err)
			}
		}

		if err := emitter(body.target).Emit(r.Context(), driver, body.Event, msg); err != nil {
			return publishError(err)
		}

		render.JSON(w, r, map[string]string{"status": "published"})
		return nil
	})

	r.Post("/join", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		body, httpErr := decodeRoomsBody(r)
		if httpErr != nil {
			return httpErr
		}

		if err := emitter(body.target).Join(r.Context(), driver, body.ChangeRooms...); err != nil {
			return publishError(err)
		}

		render.JSON(w, r, map[string]string{"status": "published"})
		return nil
	})

	r.Post("/leave", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		body, httpErr := decodeRoomsBody(r)
		if httpErr != nil {
			return httpErr
		}

		if err := emitter(body.target).Leave(r.Context(), driver, body.ChangeRooms...); err != nil {
			return publishError(err)
		}

		render.JSON(w, r, map[string]string{"status": "published"})
		return nil
	})

	r.Post("/disconnect", func(w http.ResponseWriter, r *http.Request) *httperror.HTTPError {
		var body target
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return httperror.BadRequestWithError("invalid request body", err)
		}

		if err := emitter(body).Disconnect(r.Context(), driver); err != nil {
			return publishError(err)
		}

		render.JSON(w, r, map[string]string{"status": "published"})
		return nil
	})

	log.Info().Int("port", config.Port).Msg("http server listening")

	srv := &http.Server{Addr: fmt.Sprintf(":%d", config.Port), Handler: r}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http listener failed")
	}
}

func decodeRoomsBody(r *http.Request) (roomsBody, *httperror.HTTPError) {
	var body roomsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return body, httperror.BadRequestWithError("invalid request body", err)
	}

	if len(body.ChangeRooms) == 0 {
		return body, httperror.BadRequest("missing change_rooms")
	}

	return body, nil
}

func publishError(err error) *httperror.HTTPError {
	var parserErr *sioemit.ParserError
	if errors.As(err, &parserErr) {
		return httperror.UnprocessableEntity("failed to encode payload", err)
	}

	return httperror.BadGateway("failed to publish request", err)
}
