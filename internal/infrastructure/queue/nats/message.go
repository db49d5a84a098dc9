package nats

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

type tripRequested struct {
	TripID      string    `json:"trip_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeTripRequested(subject, tripID string, at time.Time) (*nats.Msg, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return nil, fmt.Errorf("trip id is empty")
	}
	data, err := json.Marshal(tripRequested{TripID: tripID, RequestedAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal trip request event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, tripID)
	return msg, nil
}

// decodeTripRequested also accepts a bare trip id body.
func decodeTripRequested(msg *nats.Msg) (tripRequested, error) {
	body := strings.TrimSpace(string(msg.Data))
	if body == "" {
		return tripRequested{}, fmt.Errorf("empty trip request message")
	}
	if !strings.HasPrefix(body, "{") {
		return tripRequested{TripID: body}, nil
	}
	var event tripRequested
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return tripRequested{}, fmt.Errorf("unmarshal trip request event: %w", err)
	}
	if strings.TrimSpace(event.TripID) == "" {
		return tripRequested{}, fmt.Errorf("trip request event without trip id")
	}
	return event, nil
}
