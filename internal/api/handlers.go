package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cityops/traffic-light-monitor/internal/mq"
	"github.com/cityops/traffic-light-monitor/internal/query"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReadings serves the filtered history as a bare JSON array. Any
// internal failure yields HTTP 200 with an empty array: availability of
// the endpoint wins over error transparency, which existing clients
// depend on.
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := query.Params{
		StreetID:  firstNonEmpty(q.Get("streetId"), q.Get("street")),
		DeviceID:  firstNonEmpty(q.Get("deviceId"), q.Get("device")),
		StartDate: firstNonEmpty(q.Get("startDate"), q.Get("start")),
		EndDate:   firstNonEmpty(q.Get("endDate"), q.Get("end")),
	}

	readings := s.source.Readings(r.Context(), params)
	respondJSON(w, http.StatusOK, readings)
}

func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.source.Streets(r.Context()))
}

func (s *Server) handleDevicesByStreet(w http.ResponseWriter, r *http.Request) {
	streetID := mux.Vars(r)["streetId"]
	respondJSON(w, http.StatusOK, s.source.DevicesByStreet(r.Context(), streetID))
}

// commandRequest is the accepted body for the command endpoint
type commandRequest struct {
	StreetID string `json:"streetId"`
	Force    string `json:"force,omitempty"`
	Buzzer   *bool  `json:"buzzer,omitempty"`
}

// handleCommand republishes a fixed-shape command message to the
// device's cmd topic
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	deviceID, err := strconv.Atoi(mux.Vars(r)["deviceId"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "device id must be an integer")
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid command body")
		return
	}

	if req.StreetID == "" {
		respondError(w, http.StatusBadRequest, "streetId is required")
		return
	}

	cmd, err := buildCommand(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.commands.PublishCommand(r.Context(), req.StreetID, deviceID, cmd); err != nil {
		s.requestLogger(r).Error("failed to publish command",
			zap.Int("device_id", deviceID),
			zap.Error(err),
		)
		respondError(w, http.StatusBadGateway, "failed to publish command")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func buildCommand(req commandRequest) (mq.Command, error) {
	switch {
	case req.Force != "" && req.Buzzer != nil:
		return mq.Command{}, errCommandShape
	case req.Force != "":
		if req.Force != mq.ForcePedGreen {
			return mq.Command{}, errUnknownForce
		}
		return mq.Command{Force: req.Force}, nil
	case req.Buzzer != nil:
		return mq.Command{Buzzer: req.Buzzer}, nil
	default:
		return mq.Command{}, errCommandShape
	}
}

type commandError string

func (e commandError) Error() string { return string(e) }

const (
	errCommandShape commandError = "command must set exactly one of force or buzzer"
	errUnknownForce commandError = "force only accepts ped_green"
)

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
