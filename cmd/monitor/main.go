package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sioemit"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// requestView is the JSON shape streamed to websocket clients.
type requestView struct {
	Channel   string   `json:"channel"`
	Type      string   `json:"type"`
	NodeID    string   `json:"node_id"`
	RequestID string   `json:"request_id"`
	Rooms     []string `json:"rooms,omitempty"`
	Target    []string `json:"target,omitempty"`
	Except    []string `json:"except,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Payload   string   `json:"payload,omitempty"`
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

	m := melody.New()
	m.Config.WriteWait = 5 * time.Second

	prefix := config.Prefix
	if prefix == "" {
		prefix = sioemit.DefaultPrefix
	}

	go watchRequests(ctx, log.With().Str("prefix", prefix).Logger(), rdb, m, prefix)

	r := chi.NewMux()
	r.Use(middleware.Logger)

	r.Get("/_healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/websocket", func(w http.ResponseWriter, r *http.Request) {
		m.HandleRequest(w, r)
	})

	m.HandleConnect(func(s *melody.Session) {
		log.Info().Str("remote", s.Request.RemoteAddr).Msg("new websocket connection")
	})

	m.HandleDisconnect(func(s *melody.Session) {
		log.Info().Str("remote", s.Request.RemoteAddr).Msg("closed websocket connection")
	})

	log.Info().Int("port", config.Port).Msg("http server listening")

	srv := &http.Server{Addr: fmt.Sprintf(":%d", config.Port), Handler: r}
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http listener failed")
	}
}

// watchRequests taps every request channel under the prefix, decodes
// the envelopes and fans them out to connected websocket clients.
// Request ids are deduplicated because a client may be subscribed
// through several overlapping patterns.
func watchRequests(ctx context.Context, logger zerolog.Logger, rdb *redis.Client, m *melody.Melody, prefix string) {
	seen, _ := lru.New[string, bool](1024)

	sub := rdb.PSubscribe(ctx, fmt.Sprintf("%s-request#*#", prefix))
	defer sub.Close()

	for msg := range sub.Channel() {
		request, err := sioemit.DecodeRequest([]byte(msg.Payload))
		if err != nil {
			logger.Error().Err(err).Str("channel", msg.Channel).Msg("failed to decode request")
			continue
		}

		if ok, _ := seen.ContainsOrAdd(request.ID, true); ok {
			continue
		}

		view := requestView{
			Channel:   msg.Channel,
			Type:      request.TypeName(),
			NodeID:    request.NodeID,
			RequestID: request.ID,
			Rooms:     request.Rooms,
			Target:    request.Opts.Rooms,
			Except:    request.Opts.Except,
		}

		if request.Packet != nil {
			view.Namespace = request.Packet.NS
			view.Payload = request.Packet.Data.Text
			if request.Packet.Data.Bin != nil {
				view.Payload = fmt.Sprintf("<%d bytes msgpack>", len(request.Packet.Data.Bin))
			}
		}

		encoded, err := json.Marshal(view)
		if err != nil {
			logger.Error().Err(err).Str("request-id", request.ID).Msg("failed to encode request view")
			continue
		}

		if err := m.Broadcast(encoded); err != nil {
			logger.Error().Err(err).Msg("failed to broadcast to websockets")
		}

		logger.Debug().Str("request-id", request.ID).Str("type", view.Type).Msg("request observed")
	}
}
