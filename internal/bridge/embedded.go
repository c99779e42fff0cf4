package bridge

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port.
const RandomPort = server.RANDOM_PORT

// EmbeddedServer is an in-process NATS server so that serve works
// without any external broker.
type EmbeddedServer struct {
	ns     *server.Server
	logger *log.Logger
}

// StartEmbedded starts a NATS server on localhost:port.
func StartEmbedded(port int, logger *log.Logger) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		return nil, err
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, errors.New("embedded NATS server did not start within 5 seconds")
	}
	logger.Info("Bridge: embedded server started", "url", ns.ClientURL())
	return &EmbeddedServer{ns: ns, logger: logger}, nil
}

// ClientURL returns the URL clients connect to.
func (e *EmbeddedServer) ClientURL() string {
	return e.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	if e == nil || e.ns == nil {
		return
	}
	e.logger.Info("Bridge: shutting down embedded server")
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
