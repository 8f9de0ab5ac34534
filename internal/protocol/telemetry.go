package protocol

import (
	"context"
	"strings"

	"github.com/MrSnakeDoc/vertx/internal/logger"
)

// Recorder receives telemetry mirrored off the device, best effort.
type Recorder interface {
	Record(ctx context.Context, name, value string) error
}

type switchAction struct {
	metric string
	on     string
	off    string
}

type valueAction struct {
	metric string
	label  string
	unit   string
}

// FLOW is mirrored to fan_state, as the remote schema has no pump column.
var switchActions = map[string]switchAction{
	"FLOW":  {metric: "fan_state", on: "watering pump started", off: "watering pump stopped"},
	"HEAT":  {metric: "heat_state", on: "heating element on", off: "heating element off"},
	"LIGHT": {metric: "light_state", on: "grow lights on", off: "grow lights off"},
}

var valueActions = map[string]valueAction{
	"FAN":        {metric: "fan_state", label: "fan speed set", unit: "%"},
	"AIR_TEMP":   {metric: "air_temp", label: "air temperature", unit: "°C"},
	"AIR_HUM":    {metric: "air_hum", label: "air humidity", unit: "%"},
	"WATER_TEMP": {metric: "water_temp", label: "water temperature", unit: "°C"},
}

// TelemetryHandler logs the events and readings the device reports
// (INFO:ACTION=VALUE) and mirrors them to a Recorder when one is set.
type TelemetryHandler struct {
	logger   logger.Logger
	recorder Recorder
}

// NewTelemetryHandler creates a telemetry handler. recorder may be nil.
func NewTelemetryHandler(log logger.Logger, recorder Recorder) *TelemetryHandler {
	return &TelemetryHandler{logger: log, recorder: recorder}
}

// Handle logs one ACTION=VALUE report. Unknown actions and switch values
// other than ON/OFF are ignored.
func (h *TelemetryHandler) Handle(payload string) {
	action, value, ok := strings.Cut(payload, "=")
	if !ok {
		h.logger.Warn("malformed telemetry from growth unit",
			logger.String("payload", payload))
		return
	}

	if sw, ok := switchActions[action]; ok {
		switch value {
		case "ON":
			h.logger.Info(sw.on, logger.String("action", action))
			h.mirror(sw.metric, "1")
		case "OFF":
			h.logger.Info(sw.off, logger.String("action", action))
			h.mirror(sw.metric, "0")
		}
		return
	}

	if va, ok := valueActions[action]; ok {
		h.logger.Info(va.label,
			logger.String("action", action),
			logger.String("value", value),
			logger.String("unit", va.unit))
		h.mirror(va.metric, value)
	}
}

func (h *TelemetryHandler) mirror(metric, value string) {
	if h.recorder == nil {
		return
	}
	if err := h.recorder.Record(context.Background(), metric, value); err != nil {
		h.logger.Warn("failed to mirror telemetry",
			logger.String("metric", metric),
			logger.String("value", value),
			logger.Error(err))
	}
}
