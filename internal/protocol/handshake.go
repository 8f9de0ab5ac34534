package protocol

import (
	"strconv"
	"time"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// ParameterSource resolves control parameters of the active program.
type ParameterSource interface {
	Name() string
	Parameter(key string) (string, bool)
}

// handshakeEntry maps a device pull request to the command answering it.
// An empty key means the value is produced locally.
type handshakeEntry struct {
	command string
	key     string
}

const (
	RequestProgram = "GET_PROGRAM"
	RequestTime    = "GET_TIME"
)

var handshakeTable = map[string]handshakeEntry{
	RequestProgram:    {command: "SET_PROGRAM"},
	RequestTime:       {command: "SET_TIME"},
	"GET_RED_LEVEL":   {command: "SET_RED_LEVEL", key: "light.red"},
	"GET_GREEN_LEVEL": {command: "SET_GREEN_LEVEL", key: "light.green"},
	"GET_BLUE_LEVEL":  {command: "SET_BLUE_LEVEL", key: "light.blue"},
	"GET_LIGHT_ON":    {command: "SET_LIGHT_ON", key: "light.on"},
	"GET_LIGHT_OFF":   {command: "SET_LIGHT_OFF", key: "light.off"},
	"GET_FLOW_ON":     {command: "SET_FLOW_ON", key: "water.flow.on"},
	"GET_FLOW_OFF":    {command: "SET_FLOW_OFF", key: "water.flow.off"},
	"GET_WATER_LOW":   {command: "SET_WATER_LOW", key: "water.temperature.low"},
	"GET_WATER_HIGH":  {command: "SET_WATER_HIGH", key: "water.temperature.high"},
	"GET_AIR_LOW":     {command: "SET_AIR_LOW", key: "air.temperature.low"},
	"GET_AIR_HIGH":    {command: "SET_AIR_HIGH", key: "air.temperature.high"},
}

// HandshakeHandler answers the INIT parameter pulls the device issues while
// it initializes. The device decides the order; every request gets exactly
// one SET_* command back.
type HandshakeHandler struct {
	program   ParameterSource
	sender    Sender
	logger    logger.Logger
	utcOffset time.Duration
	now       func() time.Time
}

// NewHandshakeHandler creates a handshake handler. utcOffset is added to the
// Unix clock sent for GET_TIME, the device keeps local time.
func NewHandshakeHandler(program ParameterSource, sender Sender, log logger.Logger, utcOffset time.Duration) *HandshakeHandler {
	return &HandshakeHandler{
		program:   program,
		sender:    sender,
		logger:    log,
		utcOffset: utcOffset,
		now:       time.Now,
	}
}

func (h *HandshakeHandler) Handle(request string) {
	entry, ok := handshakeTable[request]
	if !ok {
		h.logger.Warn("unknown handshake request from growth unit",
			logger.String("request", request))
		return
	}

	cmd := Command{Name: entry.command}
	switch request {
	case RequestProgram:
		cmd.Value = h.program.Name()
	case RequestTime:
		cmd.Value = strconv.FormatInt(h.now().Unix()+int64(h.utcOffset/time.Second), 10)
	default:
		value, found := h.program.Parameter(entry.key)
		if !found {
			// the device still waits for an answer, send it an empty value
			h.logger.Warn("handshake parameter missing from program",
				logger.String("request", request),
				logger.String("parameter", entry.key),
				logger.String("program", h.program.Name()))
		}
		cmd.Value = value
	}

	if err := h.sender.Send(cmd); err != nil {
		h.logger.Error("failed to answer handshake request",
			logger.String("request", request),
			logger.String("command", cmd.String()),
			logger.Error(err))
		return
	}
	h.logger.Debug("handshake request answered",
		logger.String("request", request),
		logger.String("command", cmd.String()))
}
