package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TableServiceName is the fully qualified gRPC service name.
const TableServiceName = "cl2pd.v1.TableService"

const (
	MethodQueryVariables   = "QueryVariables"
	MethodQueryFills       = "QueryFills"
	MethodQueryCycleStamps = "QueryCycleStamps"
	MethodReadFiles        = "ReadFiles"
	MethodQueryTrims       = "QueryTrims"
)

// TableServiceServer is the server API of cl2pd.v1.TableService. Requests
// and responses are google.protobuf.Struct documents.
type TableServiceServer interface {
	QueryVariables(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryFills(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryCycleStamps(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReadFiles(context.Context, *structpb.Struct) (*structpb.Struct, error)
	QueryTrims(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type structCall func(TableServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call structCall) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + TableServiceName + "/" + method
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TableServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(TableServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// TableServiceDesc describes cl2pd.v1.TableService for grpc.Server.
var TableServiceDesc = grpc.ServiceDesc{
	ServiceName: TableServiceName,
	HandlerType: (*TableServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodQueryVariables, Handler: unaryHandler(MethodQueryVariables, TableServiceServer.QueryVariables)},
		{MethodName: MethodQueryFills, Handler: unaryHandler(MethodQueryFills, TableServiceServer.QueryFills)},
		{MethodName: MethodQueryCycleStamps, Handler: unaryHandler(MethodQueryCycleStamps, TableServiceServer.QueryCycleStamps)},
		{MethodName: MethodReadFiles, Handler: unaryHandler(MethodReadFiles, TableServiceServer.ReadFiles)},
		{MethodName: MethodQueryTrims, Handler: unaryHandler(MethodQueryTrims, TableServiceServer.QueryTrims)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cl2pd/v1/table_service",
}

// RegisterTableServiceServer registers srv with s.
func RegisterTableServiceServer(s grpc.ServiceRegistrar, srv TableServiceServer) {
	s.RegisterService(&TableServiceDesc, srv)
}

// TableServiceClient calls cl2pd.v1.TableService.
type TableServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTableServiceClient(cc grpc.ClientConnInterface) *TableServiceClient {
	return &TableServiceClient{cc: cc}
}

func (c *TableServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+TableServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *TableServiceClient) QueryVariables(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryVariables, in, opts...)
}

func (c *TableServiceClient) QueryFills(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryFills, in, opts...)
}

func (c *TableServiceClient) QueryCycleStamps(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryCycleStamps, in, opts...)
}

func (c *TableServiceClient) ReadFiles(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodReadFiles, in, opts...)
}

func (c *TableServiceClient) QueryTrims(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryTrims, in, opts...)
}
