package gelf

import (
	"encoding/json"
	"net"
	"os"
	"time"
)

// Writer sends GELF messages over UDP and implements zapcore.WriteSyncer so
// log output can be mirrored to Graylog via a secondary zap core.
type Writer struct {
	conn     net.Conn
	hostname string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "formflow-server"
	}

	return &Writer{conn: conn, hostname: hostname}, nil
}

// Write implements io.Writer. Each call wraps one JSON log line in a GELF
// envelope. Delivery is fire-and-forget; a send failure never fails the log call.
func (w *Writer) Write(p []byte) (int, error) {
	gelf := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": string(p),
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         6,
		"_service":      "formflow-dms",
	}

	payload, err := json.Marshal(gelf)
	if err != nil {
		return len(p), nil
	}

	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Sync() error { return nil }
