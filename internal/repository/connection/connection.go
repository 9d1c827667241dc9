package connection

// Close codes sent to clients when the server ends a connection.
const (
	CloseKicked           = 4001
	CloseReplaced         = 4002
	CloseNotAuthenticated = 4003
	CloseBackpressure     = 4004
	CloseShutdown         = 1001
)

// Conn is a live client connection. Send must not block.
type Conn interface {
	Id() string
	Send(msg []byte) error
	Close(code int, reason string)
}
