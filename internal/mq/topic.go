package mq

import (
	"fmt"
	"strconv"
	"strings"
)

// Sensors publish MQTT topics shaped like
// sensors/{streetId}/traffic_light/TL_{deviceId:03d}/state; the broker
// mirrors them onto the topic exchange with dots for slashes. These
// helpers derive and parse the AMQP routing keys.

const (
	topicPrefix   = "sensors"
	topicKind     = "traffic_light"
	stateSegment  = "state"
	cmdSegment    = "cmd"
	devicePrefix  = "TL_"
	topicSegments = 5
)

// deviceSegment formats a device id as its topic segment, e.g. TL_007
func deviceSegment(deviceID int) string {
	return fmt.Sprintf("%s%03d", devicePrefix, deviceID)
}

// StateRoutingKey returns the routing key of a device's state topic
func StateRoutingKey(streetID string, deviceID int) string {
	return strings.Join([]string{topicPrefix, streetID, topicKind, deviceSegment(deviceID), stateSegment}, ".")
}

// CmdRoutingKey returns the routing key of a device's command topic
func CmdRoutingKey(streetID string, deviceID int) string {
	return strings.Join([]string{topicPrefix, streetID, topicKind, deviceSegment(deviceID), cmdSegment}, ".")
}

// ParseStateRoutingKey extracts the street and device ids from a state
// routing key
func ParseStateRoutingKey(key string) (string, int, error) {
	segments := strings.Split(key, ".")
	if len(segments) != topicSegments || segments[0] != topicPrefix ||
		segments[2] != topicKind || segments[4] != stateSegment {
		return "", 0, fmt.Errorf("not a state routing key: %q", key)
	}

	device := strings.TrimPrefix(segments[3], devicePrefix)
	if device == segments[3] {
		return "", 0, fmt.Errorf("bad device segment in routing key: %q", key)
	}
	deviceID, err := strconv.Atoi(device)
	if err != nil {
		return "", 0, fmt.Errorf("bad device id in routing key %q: %w", key, err)
	}

	return segments[1], deviceID, nil
}
