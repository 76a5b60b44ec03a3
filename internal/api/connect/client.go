package connect

import (
	"context"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/tunebox/internal/domain/track"
)

// Client is a typed client for the player service.
type Client struct {
	search          *connect.Client[wrapperspb.StringValue, structpb.ListValue]
	getSong         *connect.Client[wrapperspb.StringValue, structpb.Struct]
	playTrack       *connect.Client[wrapperspb.StringValue, structpb.Struct]
	enqueue         *connect.Client[wrapperspb.StringValue, wrapperspb.BoolValue]
	removeFromQueue *connect.Client[wrapperspb.StringValue, wrapperspb.BoolValue]
	moveUp          *connect.Client[wrapperspb.Int32Value, wrapperspb.BoolValue]
	moveDown        *connect.Client[wrapperspb.Int32Value, wrapperspb.BoolValue]
	clearQueue      *connect.Client[emptypb.Empty, emptypb.Empty]
	getQueue        *connect.Client[emptypb.Empty, structpb.ListValue]
	next            *connect.Client[emptypb.Empty, wrapperspb.BoolValue]
	previous        *connect.Client[emptypb.Empty, wrapperspb.BoolValue]
	togglePlayPause *connect.Client[emptypb.Empty, structpb.Struct]
	stop            *connect.Client[emptypb.Empty, emptypb.Empty]
	seek            *connect.Client[wrapperspb.Int64Value, emptypb.Empty]
	setShuffle      *connect.Client[wrapperspb.BoolValue, structpb.Struct]
	setRepeat       *connect.Client[wrapperspb.StringValue, structpb.Struct]
	getState        *connect.Client[emptypb.Empty, structpb.Struct]
	subscribe       *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		search:          connect.NewClient[wrapperspb.StringValue, structpb.ListValue](httpClient, baseURL+SearchProcedure, opts...),
		getSong:         connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+GetSongProcedure, opts...),
		playTrack:       connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+PlayTrackProcedure, opts...),
		enqueue:         connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](httpClient, baseURL+EnqueueProcedure, opts...),
		removeFromQueue: connect.NewClient[wrapperspb.StringValue, wrapperspb.BoolValue](httpClient, baseURL+RemoveFromQueueProcedure, opts...),
		moveUp:          connect.NewClient[wrapperspb.Int32Value, wrapperspb.BoolValue](httpClient, baseURL+MoveUpProcedure, opts...),
		moveDown:        connect.NewClient[wrapperspb.Int32Value, wrapperspb.BoolValue](httpClient, baseURL+MoveDownProcedure, opts...),
		clearQueue:      connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+ClearQueueProcedure, opts...),
		getQueue:        connect.NewClient[emptypb.Empty, structpb.ListValue](httpClient, baseURL+GetQueueProcedure, opts...),
		next:            connect.NewClient[emptypb.Empty, wrapperspb.BoolValue](httpClient, baseURL+NextProcedure, opts...),
		previous:        connect.NewClient[emptypb.Empty, wrapperspb.BoolValue](httpClient, baseURL+PreviousProcedure, opts...),
		togglePlayPause: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+TogglePlayPauseProcedure, opts...),
		stop:            connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+StopProcedure, opts...),
		seek:            connect.NewClient[wrapperspb.Int64Value, emptypb.Empty](httpClient, baseURL+SeekProcedure, opts...),
		setShuffle:      connect.NewClient[wrapperspb.BoolValue, structpb.Struct](httpClient, baseURL+SetShuffleProcedure, opts...),
		setRepeat:       connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, baseURL+SetRepeatProcedure, opts...),
		getState:        connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+GetStateProcedure, opts...),
		subscribe:       connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

// Search returns catalog results.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, error) {
	resp, err := c.search.CallUnary(ctx, connect.NewRequest(wrapperspb.String(query)))
	if err != nil {
		return nil, err
	}
	return decodeTracks(resp.Msg)
}

// GetSong returns a catalog track.
func (c *Client) GetSong(ctx context.Context, id string) (*track.Track, error) {
	resp, err := c.getSong.CallUnary(ctx, connect.NewRequest(wrapperspb.String(id)))
	if err != nil {
		return nil, err
	}
	var t track.Track
	if err := fromMessage(resp.Msg, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// PlayTrack plays the track with the given id.
func (c *Client) PlayTrack(ctx context.Context, id string) (*PlayerState, error) {
	return callState(ctx, c.playTrack, wrapperspb.String(id))
}

// Enqueue appends a track to the queue.
func (c *Client) Enqueue(ctx context.Context, id string) (bool, error) {
	return callBool(ctx, c.enqueue, wrapperspb.String(id))
}

// RemoveFromQueue removes a track from the queue.
func (c *Client) RemoveFromQueue(ctx context.Context, id string) (bool, error) {
	return callBool(ctx, c.removeFromQueue, wrapperspb.String(id))
}

// MoveUp moves the queue entry at index up.
func (c *Client) MoveUp(ctx context.Context, index int) (bool, error) {
	return callBool(ctx, c.moveUp, wrapperspb.Int32(int32(index)))
}

// MoveDown moves the queue entry at index down.
func (c *Client) MoveDown(ctx context.Context, index int) (bool, error) {
	return callBool(ctx, c.moveDown, wrapperspb.Int32(int32(index)))
}

// ClearQueue empties the queue.
func (c *Client) ClearQueue(ctx context.Context) error {
	_, err := c.clearQueue.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}

// GetQueue returns the queue.
func (c *Client) GetQueue(ctx context.Context) ([]track.Track, error) {
	resp, err := c.getQueue.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return decodeTracks(resp.Msg)
}

// Next advances to the next track.
func (c *Client) Next(ctx context.Context) (bool, error) {
	return callBool(ctx, c.next, &emptypb.Empty{})
}

// Previous goes back to the previous track.
func (c *Client) Previous(ctx context.Context) (bool, error) {
	return callBool(ctx, c.previous, &emptypb.Empty{})
}

// TogglePlayPause pauses or resumes playback.
func (c *Client) TogglePlayPause(ctx context.Context) (*PlayerState, error) {
	return callState(ctx, c.togglePlayPause, &emptypb.Empty{})
}

// Stop stops playback.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.stop.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}

// Seek moves the playback position.
func (c *Client) Seek(ctx context.Context, position time.Duration) error {
	_, err := c.seek.CallUnary(ctx, connect.NewRequest(wrapperspb.Int64(position.Milliseconds())))
	return err
}

// SetShuffle sets the shuffle flag.
func (c *Client) SetShuffle(ctx context.Context, on bool) (*PlayerState, error) {
	return callState(ctx, c.setShuffle, wrapperspb.Bool(on))
}

// SetRepeat sets the repeat mode ("off", "all", "one" or "cycle").
func (c *Client) SetRepeat(ctx context.Context, mode string) (*PlayerState, error) {
	return callState(ctx, c.setRepeat, wrapperspb.String(mode))
}

// GetState returns the player state.
func (c *Client) GetState(ctx context.Context) (*PlayerState, error) {
	return callState(ctx, c.getState, &emptypb.Empty{})
}

// Subscribe calls fn for every update until the stream ends or ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, fn func(Update)) error {
	stream, err := c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		var u Update
		if err := fromMessage(stream.Msg(), &u); err != nil {
			return err
		}
		fn(u)
	}
	return stream.Err()
}

func callBool[Req any](ctx context.Context, client *connect.Client[Req, wrapperspb.BoolValue], msg *Req) (bool, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return false, err
	}
	return resp.Msg.GetValue(), nil
}

func callState[Req any](ctx context.Context, client *connect.Client[Req, structpb.Struct], msg *Req) (*PlayerState, error) {
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	var st PlayerState
	if err := fromMessage(resp.Msg, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func decodeTracks(list *structpb.ListValue) ([]track.Track, error) {
	tracks := []track.Track{}
	if err := fromMessage(list, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}
