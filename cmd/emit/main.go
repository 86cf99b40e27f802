package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sioemit"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const usage = `usage: emit [flags] <command> [args]

commands:
  emit <event> <json-payload>   broadcast an event to the selected sockets
  join <room>...                make the selected sockets join rooms
  leave <room>...               make the selected sockets leave rooms
  disconnect                    disconnect the selected sockets

flags:
`

type roomsFlag []string

func (f *roomsFlag) String() string {
	return strings.Join(*f, ",")
}

func (f *roomsFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func main() {
	var (
		ns     = flag.String("ns", "/", "target namespace")
		to     roomsFlag
		except roomsFlag
	)
	flag.Var(&to, "to", "target room, repeatable")
	flag.Var(&except, "except", "excluded room, repeatable")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

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
	emitter := config.Emitter().Of(*ns).To(to...).Except(except...)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch command := args[0]; command {
	case "emit":
		if len(args) != 3 {
			log.Fatal().Msg("emit requires an event name and a json payload")
		}

		var msg any
		if err := json.Unmarshal([]byte(args[2]), &msg); err != nil {
			log.Fatal().Err(err).Msg("failed to decode payload")
		}

		if err := emitter.Emit(ctx, driver, args[1], msg); err != nil {
			log.Fatal().Err(err).Msg("failed to emit event")
		}

	case "join":
		if len(args) < 2 {
			log.Fatal().Msg("join requires at least one room")
		}

		if err := emitter.Join(ctx, driver, args[1:]...); err != nil {
			log.Fatal().Err(err).Msg("failed to publish join request")
		}

	case "leave":
		if len(args) < 2 {
			log.Fatal().Msg("leave requires at least one room")
		}

		if err := emitter.Leave(ctx, driver, args[1:]...); err != nil {
			log.Fatal().Err(err).Msg("failed to publish leave request")
		}

	case "disconnect":
		if err := emitter.Disconnect(ctx, driver); err != nil {
			log.Fatal().Err(err).Msg("failed to publish disconnect request")
		}

	default:
		log.Fatal().Str("command", command).Msg("unknown command")
	}

	log.Info().Str("namespace", *ns).Str("command", args[0]).Msg("request published")
}
