// Package connect provides the Connect RPC control API of the player.
package connect

import (
	"context"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/osa030/tunebox/internal/app/filter"
	"github.com/osa030/tunebox/internal/app/notification"
	"github.com/osa030/tunebox/internal/app/playback"
	"github.com/osa030/tunebox/internal/app/queue"
	"github.com/osa030/tunebox/internal/app/search"
	"github.com/osa030/tunebox/internal/domain/track"
)

// ServiceName is the fully-qualified name of the player service.
const ServiceName = "tunebox.v1.PlayerService"

// Procedure paths.
const (
	SearchProcedure          = "/" + ServiceName + "/Search"
	GetSongProcedure         = "/" + ServiceName + "/GetSong"
	PlayTrackProcedure       = "/" + ServiceName + "/PlayTrack"
	EnqueueProcedure         = "/" + ServiceName + "/Enqueue"
	RemoveFromQueueProcedure = "/" + ServiceName + "/RemoveFromQueue"
	MoveUpProcedure          = "/" + ServiceName + "/MoveUp"
	MoveDownProcedure        = "/" + ServiceName + "/MoveDown"
	ClearQueueProcedure      = "/" + ServiceName + "/ClearQueue"
	GetQueueProcedure        = "/" + ServiceName + "/GetQueue"
	NextProcedure            = "/" + ServiceName + "/Next"
	PreviousProcedure        = "/" + ServiceName + "/Previous"
	TogglePlayPauseProcedure = "/" + ServiceName + "/TogglePlayPause"
	StopProcedure            = "/" + ServiceName + "/Stop"
	SeekProcedure            = "/" + ServiceName + "/Seek"
	SetShuffleProcedure      = "/" + ServiceName + "/SetShuffle"
	SetRepeatProcedure       = "/" + ServiceName + "/SetRepeat"
	GetStateProcedure        = "/" + ServiceName + "/GetState"
	SubscribeProcedure       = "/" + ServiceName + "/Subscribe"
)

const initialStateEvent = "initial_state"

// PlayerService implements the player control RPCs.
type PlayerService struct {
	controller    *playback.Controller
	queue         *queue.Store
	search        *search.Service
	filters       *filter.Chain
	notifications *notification.Manager
}

// NewPlayerService creates a new PlayerService. A nil filter chain admits every track.
func NewPlayerService(
	controller *playback.Controller,
	q *queue.Store,
	s *search.Service,
	filters *filter.Chain,
	n *notification.Manager,
) *PlayerService {
	return &PlayerService{
		controller:    controller,
		queue:         q,
		search:        s,
		filters:       filters,
		notifications: n,
	}
}

// NewHandler builds the HTTP handler serving every procedure of the service.
// It returns the path prefix to mount it under.
func NewHandler(s *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(SearchProcedure, connect.NewUnaryHandler(SearchProcedure, s.Search, opts...))
	mux.Handle(GetSongProcedure, connect.NewUnaryHandler(GetSongProcedure, s.GetSong, opts...))
	mux.Handle(PlayTrackProcedure, connect.NewUnaryHandler(PlayTrackProcedure, s.PlayTrack, opts...))
	mux.Handle(EnqueueProcedure, connect.NewUnaryHandler(EnqueueProcedure, s.Enqueue, opts...))
	mux.Handle(RemoveFromQueueProcedure, connect.NewUnaryHandler(RemoveFromQueueProcedure, s.RemoveFromQueue, opts...))
	mux.Handle(MoveUpProcedure, connect.NewUnaryHandler(MoveUpProcedure, s.MoveUp, opts...))
	mux.Handle(MoveDownProcedure, connect.NewUnaryHandler(MoveDownProcedure, s.MoveDown, opts...))
	mux.Handle(ClearQueueProcedure, connect.NewUnaryHandler(ClearQueueProcedure, s.ClearQueue, opts...))
	mux.Handle(GetQueueProcedure, connect.NewUnaryHandler(GetQueueProcedure, s.GetQueue, opts...))
	mux.Handle(NextProcedure, connect.NewUnaryHandler(NextProcedure, s.Next, opts...))
	mux.Handle(PreviousProcedure, connect.NewUnaryHandler(PreviousProcedure, s.Previous, opts...))
	mux.Handle(TogglePlayPauseProcedure, connect.NewUnaryHandler(TogglePlayPauseProcedure, s.TogglePlayPause, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, s.Stop, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, s.Seek, opts...))
	mux.Handle(SetShuffleProcedure, connect.NewUnaryHandler(SetShuffleProcedure, s.SetShuffle, opts...))
	mux.Handle(SetRepeatProcedure, connect.NewUnaryHandler(SetRepeatProcedure, s.SetRepeat, opts...))
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, s.GetState, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, s.Subscribe, opts...))
	return "/" + ServiceName + "/", mux
}

// Search returns catalog results for the query. Catalog failures yield an empty list.
func (s *PlayerService) Search(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.ListValue], error) {
	list, err := toList(s.search.Search(ctx, req.Msg.GetValue()))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// GetSong returns a single catalog track.
func (s *PlayerService) GetSong(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	t := s.search.Song(ctx, req.Msg.GetValue())
	if t == nil {
		return nil, connect.NewError(connect.CodeNotFound, errors.Newf("track not found: %s", req.Msg.GetValue()))
	}
	msg, err := toStruct(t)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// PlayTrack makes the track with the given id current and starts it.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	t, err := s.resolve(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, err
	}
	s.controller.Select(ctx, *t)
	return s.state(ctx)
}

// Enqueue appends the track with the given id to the queue.
// The response is false if it was already queued. Tracks rejected by the
// admission filters fail with FailedPrecondition.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.BoolValue], error) {
	if _, ok := s.queue.Get(req.Msg.GetValue()); ok {
		return connect.NewResponse(wrapperspb.Bool(false)), nil
	}
	t, err := s.resolve(ctx, req.Msg.GetValue())
	if err != nil {
		return nil, err
	}
	if result := s.filters.Execute(ctx, *t); !result.Accepted {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.Newf("track rejected: %s", result.Code))
	}
	return connect.NewResponse(wrapperspb.Bool(s.queue.Append(ctx, *t))), nil
}

// RemoveFromQueue removes the track with the given id from the queue.
func (s *PlayerService) RemoveFromQueue(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.queue.RemoveByID(ctx, req.Msg.GetValue()))), nil
}

// MoveUp swaps the queue entry at the given index with its predecessor.
func (s *PlayerService) MoveUp(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int32Value],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.queue.MoveUp(ctx, int(req.Msg.GetValue())))), nil
}

// MoveDown swaps the queue entry at the given index with its successor.
func (s *PlayerService) MoveDown(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int32Value],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.queue.MoveDown(ctx, int(req.Msg.GetValue())))), nil
}

// ClearQueue empties the queue.
func (s *PlayerService) ClearQueue(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[emptypb.Empty], error) {
	s.queue.Clear(ctx)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetQueue returns the queue in order.
func (s *PlayerService) GetQueue(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.ListValue], error) {
	list, err := toList(s.queue.Tracks())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(list), nil
}

// Next advances to the next track. The response is false if nothing was selected.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.controller.PlayNext(ctx))), nil
}

// Previous goes back to the previous queue entry.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.BoolValue], error) {
	return connect.NewResponse(wrapperspb.Bool(s.controller.PlayPrevious(ctx))), nil
}

// TogglePlayPause pauses or resumes playback.
func (s *PlayerService) TogglePlayPause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s.controller.TogglePlayPause(ctx)
	return s.state(ctx)
}

// Stop stops playback, keeping the current track.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[emptypb.Empty], error) {
	s.controller.Stop()
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// Seek moves the playback position to the given millisecond offset.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[wrapperspb.Int64Value],
) (*connect.Response[emptypb.Empty], error) {
	if req.Msg.GetValue() < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("position must not be negative"))
	}
	s.controller.Seek(ctx, time.Duration(req.Msg.GetValue())*time.Millisecond)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// SetShuffle sets the shuffle flag.
func (s *PlayerService) SetShuffle(
	ctx context.Context,
	req *connect.Request[wrapperspb.BoolValue],
) (*connect.Response[structpb.Struct], error) {
	s.controller.SetShuffle(req.Msg.GetValue())
	return s.state(ctx)
}

// SetRepeat sets the repeat mode ("off", "all", "one"), or cycles it when given "cycle".
func (s *PlayerService) SetRepeat(
	ctx context.Context,
	req *connect.Request[wrapperspb.StringValue],
) (*connect.Response[structpb.Struct], error) {
	if req.Msg.GetValue() == "cycle" {
		s.controller.CycleRepeat()
		return s.state(ctx)
	}
	mode, err := playback.ParseRepeatMode(req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.controller.SetRepeat(mode)
	return s.state(ctx)
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.state(ctx)
}

// Subscribe streams the current state followed by every change.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	adapter := &updateStreamAdapter{stream: stream}

	subscriptionID := s.notifications.Subscribe(adapter)
	defer s.notifications.Unsubscribe(subscriptionID)

	initial := &notification.Notification{
		Event:    initialStateEvent,
		Snapshot: s.controller.Snapshot(ctx),
	}
	if err := s.notifications.Send(subscriptionID, initial); err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}

	zlog.Debug().Msgf("subscriber connected: id=%s", subscriptionID)
	select {
	case <-ctx.Done():
	case <-s.notifications.Done():
	}
	zlog.Debug().Msgf("subscriber disconnected: id=%s", subscriptionID)
	return nil
}

// resolve finds a track by id in the queue, then in the catalog.
func (s *PlayerService) resolve(ctx context.Context, id string) (*track.Track, error) {
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("track id is required"))
	}
	if t, ok := s.queue.Get(id); ok {
		return &t, nil
	}
	if t := s.search.Song(ctx, id); t != nil {
		return t, nil
	}
	return nil, connect.NewError(connect.CodeNotFound, errors.Newf("track not found: %s", id))
}

func (s *PlayerService) state(ctx context.Context) (*connect.Response[structpb.Struct], error) {
	msg, err := toStruct(NewPlayerState(s.controller.Snapshot(ctx)))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// updateStreamAdapter adapts a server stream to notification.Stream.
// Updates arriving before the initial state are held and sent right after it.
// ServerStream.Send is not safe for concurrent use.
type updateStreamAdapter struct {
	mu      sync.Mutex
	stream  *connect.ServerStream[structpb.Struct]
	started bool
	pending []*notification.Notification
}

func (a *updateStreamAdapter) Send(n *notification.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		if n.Event != initialStateEvent {
			a.pending = append(a.pending, n)
			return nil
		}
		a.started = true
		if err := a.send(n); err != nil {
			return err
		}
		for _, p := range a.pending {
			if err := a.send(p); err != nil {
				return err
			}
		}
		a.pending = nil
		return nil
	}
	return a.send(n)
}

func (a *updateStreamAdapter) send(n *notification.Notification) error {
	msg, err := toStruct(newUpdate(n))
	if err != nil {
		return err
	}
	return a.stream.Send(msg)
}
