// Package control implements ControlPlane: the duplex JSON-over-WebSocket
// session that receives start/stop commands and dispatches partial,
// final, translation_update, and error messages back to the client,
// grounded on the gorilla/websocket upgrade-and-per-connection-goroutine
// idiom of hubenschmidt-asr-llm-tts's internal/ws/handler.go.
package control

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/config"
	"github.com/nmtuan2007/echo-flux/internal/pipeline"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// inboundMessage is the shape of every client->server text frame.
type inboundMessage struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// statusMessage is the reply to a well-formed start/stop.
type statusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// errorMessage is the reply to anything else.
type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandlerConfig holds the shared, process-wide collaborators every
// session's pipeline is built from.
type HandlerConfig struct {
	ConfigPath  string
	SidecarURLs pipeline.SidecarURLs
}

// Handler upgrades incoming HTTP connections to WebSocket control
// sessions.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler creates a control-plane HTTP handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("control: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s := &session{
		conn:   conn,
		hcfg:   h.cfg,
		source: audio.NewChunkSource(audioSourceCapacity),
	}
	s.run()
}

const audioSourceCapacity = 500

// session is one ControlPlane connection: exactly one active Pipeline
// at a time, replaced wholesale by a second start.
type session struct {
	conn   *websocket.Conn
	hcfg   HandlerConfig
	source *audio.ChunkSource

	codec      audio.Codec
	sampleRate int

	mu     sync.Mutex
	active *pipeline.Pipeline
	cancel context.CancelFunc

	writeMu sync.Mutex
}

func (s *session) run() {
	defer s.stopActive()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			slog.Info("control: session connection closed", "error", err)
			return
		}

		switch msgType {
		case websocket.TextMessage:
			s.handleText(data)
		case websocket.BinaryMessage:
			s.pushAudio(data)
		}
	}
}

func (s *session) handleText(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError("malformed message: " + err.Error())
		return
	}

	switch msg.Type {
	case "start":
		s.handleStart(msg.Config)
	case "stop":
		s.stopActive()
		s.sendJSON(statusMessage{Type: "status", Status: "stopped"})
	default:
		s.sendError("Unknown type: " + msg.Type)
	}
}

func (s *session) handleStart(rawConfig json.RawMessage) {
	store, err := config.Load(s.hcfg.ConfigPath)
	if err != nil {
		s.sendError("config: " + err.Error())
		return
	}
	if len(rawConfig) > 0 {
		if err := store.MergeJSON(rawConfig); err != nil {
			s.sendError("config: " + err.Error())
			return
		}
	}
	cfg, err := store.Resolve()
	if err != nil {
		s.sendError("config: " + err.Error())
		return
	}

	// A second start replaces the first outright.
	s.stopActive()

	sessionID := newSessionID()
	s.source = audio.NewChunkSource(audioSourceCapacity)

	s.codec = audio.Codec(cfg.Audio.Codec)
	if s.codec == "" {
		s.codec = audio.CodecPCM
	}
	s.sampleRate = cfg.Audio.SampleRate
	if s.sampleRate <= 0 {
		s.sampleRate = audio.DefaultSampleRate
	}

	pipe, err := pipeline.Build(cfg, s.hcfg.SidecarURLs, s.source, sessionID, s.forward)
	if err != nil {
		s.sendError("start: " + err.Error())
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := pipe.Start(ctx); err != nil {
		cancel()
		s.sendError("start: " + err.Error())
		return
	}

	s.mu.Lock()
	s.active = pipe
	s.cancel = cancel
	s.mu.Unlock()

	s.sendJSON(statusMessage{Type: "status", Status: "started"})
}

func (s *session) stopActive() {
	s.mu.Lock()
	pipe := s.active
	cancel := s.cancel
	s.active = nil
	s.cancel = nil
	s.mu.Unlock()

	if pipe != nil {
		pipe.Stop()
	}
	if cancel != nil {
		cancel()
	}
}

// pushAudio decodes a client-supplied wire codec (G.711 call-center
// frames in addition to raw PCM) and resamples to the session's
// canonical rate before handing bytes to the pipeline's audio queue,
// so VadGate and AsrEngine only ever see canonical 16kHz mono PCM16.
func (s *session) pushAudio(data []byte) {
	if s.codec == "" || s.codec == audio.CodecPCM {
		s.source.Push(data)
		return
	}

	samples, rate, err := audio.Decode(data, s.codec, s.sampleRate)
	if err != nil {
		slog.Warn("control: decode audio frame failed", "error", err, "codec", s.codec)
		return
	}
	if s.sampleRate > 0 && rate != s.sampleRate {
		samples = audio.Resample(samples, rate, s.sampleRate)
	}
	s.source.Push(audio.Float32ToBytes(samples))
}

// forward is the pipeline Sink: every pipeline event is serialized and
// written to the client in emission order.
func (s *session) forward(evt pipeline.Event) {
	s.sendJSON(evt)
}

func (s *session) sendError(message string) {
	s.sendJSON(errorMessage{Type: "error", Message: message})
}

func (s *session) sendJSON(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		slog.Error("control: write failed", "error", err)
	}
}

func newSessionID() string {
	return uuid.NewString()
}
