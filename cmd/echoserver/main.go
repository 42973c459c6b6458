// Command echoserver drives the reactor-backed datagram socket core:
// it binds a UDP socket, registers it with a Reactor, and echoes every
// received datagram back to its sender. Flag parsing and log setup
// follow the teacher's cmd/server CLI idiom.
package main

import (
	"flag"
	"net"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reactornet/internal/reactor"
	"reactornet/internal/socket"
	"reactornet/internal/sockqueue"
)

// echoHandler adapts the socket's readable/writable/error callbacks
// into the reactor.Handler interface, and immediately echoes whatever
// datagrams the readable event buffered.
type echoHandler struct {
	sock *socket.Socket
}

func (h *echoHandler) OnReadable() {
	h.sock.OnReadable()
	for {
		dg, err := h.sock.Receive()
		if err != nil {
			return
		}
		h.sock.Send(dg.Payload, dg.Source, socket.Options{Priority: sockqueue.PriorityNormal}, func(n int, sendErr error) {
			if sendErr != nil {
				log.Error().Err(sendErr).Msg("echo send failed")
			}
		})
	}
}

func (h *echoHandler) OnWritable() {
	h.sock.OnWritable()
}

func (h *echoHandler) OnError(err error) {
	log.Error().Err(err).Msg("socket error")
	h.sock.OnError(err)
}

func main() {
	listen := flag.String("listen", "127.0.0.1:9999", "UDP address to listen on")
	logLevel := flag.String("log-level", "info", "Log level: debug/info/warn/error")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	switch *logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	r, err := reactor.New()
	if err != nil {
		log.Fatal().Err(err).Msg("creating reactor")
	}
	defer r.Close()

	sock := socket.New(socket.TransportUDPv4, r)
	if err := sock.Open(); err != nil {
		log.Fatal().Err(err).Msg("opening socket")
	}
	if err := sock.Bind(*listen, func(spec string) (*net.UDPAddr, error) {
		return net.ResolveUDPAddr("udp", spec)
	}); err != nil {
		log.Fatal().Err(err).Msg("binding socket")
	}

	handler := &echoHandler{sock: sock}
	if err := sock.Attach(r, handler, nil); err != nil {
		log.Fatal().Err(err).Msg("attaching socket to reactor")
	}

	log.Info().Str("listen", *listen).Msg("echoing datagrams")

	stop := make(chan struct{})
	r.Run(stop)
}
