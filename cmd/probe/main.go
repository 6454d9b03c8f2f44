// Probe connects to a running server, says Hello and prints every event it
// receives until the Welcome arrives or the timeout passes. With -inputs it
// then sends that many random single-step moves.
package main

import (
	"flag"
	"math/rand"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"mazewars/internal/config"
	"mazewars/internal/game"
	"mazewars/internal/logging"
	"mazewars/internal/protocol"
)

func main() {
	godotenv.Load(".env")

	defaultURL := "ws://127.0.0.1:5000/ws"
	if v := os.Getenv("PROBE_URL"); v != "" {
		defaultURL = v
	}

	var (
		url     = flag.String("url", defaultURL, "websocket url")
		name    = flag.String("name", "probe", "player name")
		timeout = flag.Duration("timeout", 5*time.Second, "how long to wait for Welcome")
		inputs  = flag.Int("inputs", 0, "random moves to send after Welcome")
	)
	flag.Parse()

	logger, err := logging.New(config.LogConfig{Level: "info"})
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("connecting", zap.String("url", *url), zap.String("name", *name))
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal("dial", zap.Error(err))
	}
	defer conn.Close()

	if err := write(conn, game.Hello{Name: *name}); err != nil {
		logger.Fatal("send Hello", zap.Error(err))
	}
	logger.Info("hello sent, waiting for Welcome", zap.Duration("timeout", *timeout))

	deadline := time.Now().Add(*timeout)
	if !readUntil(conn, logger, deadline, "Welcome") {
		logger.Warn("no Welcome received; the server may be unreachable or busy")
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < *inputs; i++ {
		in := game.Input{DX: rng.Intn(3) - 1, DY: rng.Intn(3) - 1}
		if err := write(conn, in); err != nil {
			logger.Fatal("send Input", zap.Error(err))
		}
		logger.Info("input sent", zap.Int("dx", in.DX), zap.Int("dy", in.DY))
		readUntil(conn, logger, time.Now().Add(500*time.Millisecond), "Players")
	}
}

func write(conn *websocket.Conn, msg game.InboundMessage) error {
	data, err := protocol.EncodeInbound(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// readUntil logs events until one named event arrives. It reports whether it did.
func readUntil(conn *websocket.Conn, logger *zap.Logger, deadline time.Time, event string) bool {
	conn.SetReadDeadline(deadline)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return false
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			logger.Warn("undecodable frame", zap.ByteString("frame", data))
			continue
		}
		logger.Info("received event", zap.String("event", env.Event), zap.ByteString("body", env.Body))
		if env.Event == event {
			return true
		}
	}
}
