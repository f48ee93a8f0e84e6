// Code generated from transform.proto by a protoc-gen-go-grpc-style
// generator; hand-maintained here. DO NOT add business logic to this file.
package transformpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Transform_ServiceName = "transform.Transform"
)

// TransformClient is the client API for the Transform service.
type TransformClient interface {
	Transform(ctx context.Context, opts ...grpc.CallOption) (Transform_TransformClient, error)
	TransformProducer(ctx context.Context, in *ProduceRequest, opts ...grpc.CallOption) (Transform_TransformProducerClient, error)
	TransformConsumer(ctx context.Context, opts ...grpc.CallOption) (Transform_TransformConsumerClient, error)
}

type transformClient struct {
	cc grpc.ClientConnInterface
}

// NewTransformClient constructs a TransformClient. Callers must dial with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(transformpb.Codec())) so the
// JSON codec registered in codec.go is used for every RPC.
func NewTransformClient(cc grpc.ClientConnInterface) TransformClient {
	return &transformClient{cc}
}

func (c *transformClient) Transform(ctx context.Context, opts ...grpc.CallOption) (Transform_TransformClient, error) {
	stream, err := c.cc.NewStream(ctx, &Transform_ServiceDesc.Streams[0], "/transform.Transform/Transform", opts...)
	if err != nil {
		return nil, err
	}
	return &transformTransformClient{stream}, nil
}

func (c *transformClient) TransformProducer(ctx context.Context, in *ProduceRequest, opts ...grpc.CallOption) (Transform_TransformProducerClient, error) {
	stream, err := c.cc.NewStream(ctx, &Transform_ServiceDesc.Streams[1], "/transform.Transform/TransformProducer", opts...)
	if err != nil {
		return nil, err
	}
	x := &transformTransformProducerClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

func (c *transformClient) TransformConsumer(ctx context.Context, opts ...grpc.CallOption) (Transform_TransformConsumerClient, error) {
	stream, err := c.cc.NewStream(ctx, &Transform_ServiceDesc.Streams[2], "/transform.Transform/TransformConsumer", opts...)
	if err != nil {
		return nil, err
	}
	return &transformTransformConsumerClient{stream}, nil
}

// Transform_TransformClient is the client's view of the Transform stream.
type Transform_TransformClient interface {
	Send(*TransformRequest) error
	Recv() (*TransformResponse, error)
	grpc.ClientStream
}

type transformTransformClient struct {
	grpc.ClientStream
}

func (x *transformTransformClient) Send(m *TransformRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *transformTransformClient) Recv() (*TransformResponse, error) {
	m := new(TransformResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type Transform_TransformProducerClient interface {
	Recv() (*ProduceResponse, error)
	grpc.ClientStream
}

type transformTransformProducerClient struct {
	grpc.ClientStream
}

func (x *transformTransformProducerClient) Recv() (*ProduceResponse, error) {
	m := new(ProduceResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type Transform_TransformConsumerClient interface {
	Send(*ConsumeRequest) error
	CloseAndRecv() (*ConsumeResponse, error)
	grpc.ClientStream
}

type transformTransformConsumerClient struct {
	grpc.ClientStream
}

func (x *transformTransformConsumerClient) Send(m *ConsumeRequest) error {
	return x.ClientStream.SendMsg(m)
}

func (x *transformTransformConsumerClient) CloseAndRecv() (*ConsumeResponse, error) {
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	m := new(ConsumeResponse)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// TransformServer is the server API for the Transform service.
type TransformServer interface {
	// Transform implements the bidirectional streaming engine described by
	// the package doc of internal/engine.
	Transform(Transform_TransformServer) error
	// TransformProducer and TransformConsumer are reserved for future
	// one-directional variants of the engine; both are unimplemented.
	TransformProducer(*ProduceRequest, Transform_TransformProducerServer) error
	TransformConsumer(Transform_TransformConsumerServer) error
	mustEmbedUnimplementedTransformServer()
}

// UnimplementedTransformServer must be embedded by every TransformServer
// implementation for forward compatibility with future RPCs.
type UnimplementedTransformServer struct{}

func (UnimplementedTransformServer) Transform(Transform_TransformServer) error {
	return status.Errorf(codes.Unimplemented, "method Transform not implemented")
}
func (UnimplementedTransformServer) TransformProducer(*ProduceRequest, Transform_TransformProducerServer) error {
	return status.Errorf(codes.Unimplemented, "method TransformProducer not implemented")
}
func (UnimplementedTransformServer) TransformConsumer(Transform_TransformConsumerServer) error {
	return status.Errorf(codes.Unimplemented, "method TransformConsumer not implemented")
}
func (UnimplementedTransformServer) mustEmbedUnimplementedTransformServer() {}

// RegisterTransformServer registers srv with s.
func RegisterTransformServer(s grpc.ServiceRegistrar, srv TransformServer) {
	s.RegisterService(&Transform_ServiceDesc, srv)
}

func _Transform_Transform_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TransformServer).Transform(&transformTransformServer{stream})
}

type Transform_TransformServer interface {
	Send(*TransformResponse) error
	Recv() (*TransformRequest, error)
	grpc.ServerStream
}

type transformTransformServer struct {
	grpc.ServerStream
}

func (x *transformTransformServer) Send(m *TransformResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *transformTransformServer) Recv() (*TransformRequest, error) {
	m := new(TransformRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _Transform_TransformProducer_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(ProduceRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TransformServer).TransformProducer(m, &transformTransformProducerServer{stream})
}

type Transform_TransformProducerServer interface {
	Send(*ProduceResponse) error
	grpc.ServerStream
}

type transformTransformProducerServer struct {
	grpc.ServerStream
}

func (x *transformTransformProducerServer) Send(m *ProduceResponse) error {
	return x.ServerStream.SendMsg(m)
}

func _Transform_TransformConsumer_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(TransformServer).TransformConsumer(&transformTransformConsumerServer{stream})
}

type Transform_TransformConsumerServer interface {
	SendAndClose(*ConsumeResponse) error
	Recv() (*ConsumeRequest, error)
	grpc.ServerStream
}

type transformTransformConsumerServer struct {
	grpc.ServerStream
}

func (x *transformTransformConsumerServer) SendAndClose(m *ConsumeResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *transformTransformConsumerServer) Recv() (*ConsumeRequest, error) {
	m := new(ConsumeRequest)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Transform_ServiceDesc is the grpc.ServiceDesc for the Transform service.
var Transform_ServiceDesc = grpc.ServiceDesc{
	ServiceName: Transform_ServiceName,
	HandlerType: (*TransformServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Transform",
			Handler:       _Transform_Transform_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
		{
			StreamName:    "TransformProducer",
			Handler:       _Transform_TransformProducer_Handler,
			ServerStreams: true,
		},
		{
			StreamName:    "TransformConsumer",
			Handler:       _Transform_TransformConsumer_Handler,
			ClientStreams: true,
		},
	},
	Metadata: "transform.proto",
}
