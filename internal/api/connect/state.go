package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/tunebox/internal/app/notification"
	"github.com/osa030/tunebox/internal/app/playback"
	"github.com/osa030/tunebox/internal/domain/track"
)

// PlayerState is the wire view of the player.
type PlayerState struct {
	Current    *track.Track  `json:"current,omitempty"`
	Playing    bool          `json:"playing"`
	Shuffle    bool          `json:"shuffle"`
	Repeat     string        `json:"repeat"`
	PositionMs int64         `json:"position_ms"`
	DurationMs int64         `json:"duration_ms"`
	Queue      []track.Track `json:"queue"`
}

// Update is the wire view of a pushed notification.
type Update struct {
	SequenceNo uint64      `json:"sequence_no"`
	Event      string      `json:"event"`
	State      PlayerState `json:"state"`
}

// NewPlayerState converts a coordinator snapshot.
func NewPlayerState(s playback.Snapshot) PlayerState {
	queue := s.Queue
	if queue == nil {
		queue = []track.Track{}
	}
	return PlayerState{
		Current:    s.Current,
		Playing:    s.Playing,
		Shuffle:    s.Shuffle,
		Repeat:     s.Repeat.String(),
		PositionMs: s.Position.Milliseconds(),
		DurationMs: s.Duration.Milliseconds(),
		Queue:      queue,
	}
}

// newUpdate converts a notification.
func newUpdate(n *notification.Notification) Update {
	return Update{
		SequenceNo: n.SequenceNo,
		Event:      n.Event,
		State:      NewPlayerState(n.Snapshot),
	}
}

// toStruct encodes v through its JSON form.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	return structpb.NewStruct(m)
}

// toList encodes tracks as a list of structs.
func toList(tracks []track.Track) (*structpb.ListValue, error) {
	values := make([]any, 0, len(tracks))
	for _, t := range tracks {
		data, err := json.Marshal(t)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode track")
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(err, "failed to encode track")
		}
		values = append(values, m)
	}
	return structpb.NewList(values)
}

// fromMessage decodes a Struct or ListValue into out through its JSON form.
func fromMessage(msg proto.Message, out any) error {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to decode message")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "failed to decode message")
	}
	return nil
}
