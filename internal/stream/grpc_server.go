package stream

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/banshee-data/derbyviz/internal/scene"
)

// Service and method names on the wire.
const (
	ServiceName        = "derbyviz.FrameStream"
	StreamFramesMethod = "/" + ServiceName + "/StreamFrames"
)

// FrameStreamServer is the server API for the FrameStream service.
type FrameStreamServer interface {
	StreamFrames(*structpb.Struct, FrameStream_StreamFramesServer) error
}

// FrameStream_StreamFramesServer is the server side of one StreamFrames call.
type FrameStream_StreamFramesServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type frameStreamStreamFramesServer struct {
	grpc.ServerStream
}

func (x *frameStreamStreamFramesServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

func streamFramesHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(structpb.Struct)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(FrameStreamServer).StreamFrames(req, &frameStreamStreamFramesServer{stream})
}

// FrameStreamServiceDesc describes the FrameStream service. Messages are
// google.protobuf.Struct so no generated code is needed on either side.
var FrameStreamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FrameStreamServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamFrames",
			Handler:       streamFramesHandler,
			ServerStreams: true,
		},
	},
	Metadata: "derbyviz/frame_stream.proto",
}

// RegisterFrameStreamServer registers srv on s.
func RegisterFrameStreamServer(s grpc.ServiceRegistrar, srv FrameStreamServer) {
	s.RegisterService(&FrameStreamServiceDesc, srv)
}

// StreamRequest selects which frame layers a client receives. Clock and
// toggle fields are always sent.
type StreamRequest struct {
	IncludePaths  bool
	IncludeSlices bool
}

// ParseStreamRequest reads include_paths and include_slices from req. A
// missing field defaults to true.
func ParseStreamRequest(req *structpb.Struct) (StreamRequest, error) {
	out := StreamRequest{IncludePaths: true, IncludeSlices: true}
	if req == nil {
		return out, nil
	}
	for key, v := range req.GetFields() {
		var dst *bool
		switch key {
		case "include_paths":
			dst = &out.IncludePaths
		case "include_slices":
			dst = &out.IncludeSlices
		default:
			return out, status.Errorf(codes.InvalidArgument, "unknown request field %q", key)
		}
		b, ok := v.GetKind().(*structpb.Value_BoolValue)
		if !ok {
			return out, status.Errorf(codes.InvalidArgument, "%s must be a bool", key)
		}
		*dst = b.BoolValue
	}
	return out, nil
}

// Server implements FrameStreamServer over a Publisher.
type Server struct {
	publisher *Publisher
}

var _ FrameStreamServer = (*Server)(nil)

// NewServer creates a new gRPC service backed by publisher.
func NewServer(publisher *Publisher) *Server {
	return &Server{publisher: publisher}
}

// StreamFrames sends every published frame until the client goes away or
// the publisher stops.
func (s *Server) StreamFrames(req *structpb.Struct, stream FrameStream_StreamFramesServer) error {
	sr, err := ParseStreamRequest(req)
	if err != nil {
		return err
	}
	client, err := s.publisher.addClient(sr)
	if errors.Is(err, ErrTooManyClients) {
		return status.Error(codes.ResourceExhausted, err.Error())
	} else if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	defer s.publisher.removeClient(client.id)

	log.Printf("[stream] StreamFrames started: client=%s paths=%v slices=%v", client.id, sr.IncludePaths, sr.IncludeSlices)
	return s.pump(stream.Context(), client, stream)
}

func (s *Server) pump(ctx context.Context, client *clientStream, stream FrameStream_StreamFramesServer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.publisher.stopCh:
			return status.Error(codes.Unavailable, "frame stream stopped")
		case f := <-client.frameCh:
			msg, err := FrameToStruct(f, client.request)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode frame %d: %v", f.Seq, err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

func rgbValue(r, g, b uint8) []interface{} {
	return []interface{}{int64(r), int64(g), int64(b)}
}

func vec3(v [3]float64) []interface{} {
	return []interface{}{v[0], v[1], v[2]}
}

// FrameToStruct converts a frame to its wire form, dropping the layers req
// did not ask for.
func FrameToStruct(f *scene.Frame, req StreamRequest) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"seq":            int64(f.Seq),
		"current_time":   f.CurrentTime,
		"trail_window":   f.TrailWindow,
		"playing":        f.Playing,
		"show_trails":    f.ShowTrails,
		"show_slices":    f.ShowSlices,
		"trail_opacity":  f.TrailOpacity,
		"mode":           string(f.Mode),
		"slice_plane_ft": f.SlicePlane,
	}

	if req.IncludePaths {
		arcs := make([]interface{}, len(f.Arcs))
		for i, a := range f.Arcs {
			path := make([]interface{}, len(a.Path))
			for j, p := range a.Path {
				path[j] = vec3(p)
			}
			ts := make([]interface{}, len(a.Timestamps))
			for j, t := range a.Timestamps {
				ts[j] = t
			}
			arcs[i] = map[string]interface{}{
				"hit_id":     a.HitID,
				"player_id":  a.PlayerID,
				"round_id":   int64(a.RoundID),
				"path":       path,
				"timestamps": ts,
				"color":      rgbValue(a.Color.R, a.Color.G, a.Color.B),
			}
		}
		m["arcs"] = arcs
	}

	if req.IncludeSlices {
		slices := make([]interface{}, len(f.Slices))
		for i, sm := range f.Slices {
			slices[i] = map[string]interface{}{
				"hit_id":   sm.HitID,
				"position": vec3(sm.Position),
				"radius":   sm.Radius,
				"fill":     rgbValue(sm.Fill.R, sm.Fill.G, sm.Fill.B),
			}
		}
		m["slices"] = slices
	}

	return structpb.NewStruct(m)
}
