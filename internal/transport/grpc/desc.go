package grpcx

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceDesc описывает BookingService без сгенерированного кода:
// сообщения являются обычными структурами, кодек JSON.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListClasses", BookingServiceServer.ListClasses),
		unary("GetClass", BookingServiceServer.GetClass),
		unary("CreateClass", BookingServiceServer.CreateClass),
		unary("UpdateClass", BookingServiceServer.UpdateClass),
		unary("CancelClass", BookingServiceServer.CancelClass),
		unary("ListClassEvents", BookingServiceServer.ListClassEvents),
		unary("CheckIn", BookingServiceServer.CheckIn),
		unary("CreateBooking", BookingServiceServer.CreateBooking),
		unary("ListBookings", BookingServiceServer.ListBookings),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fitness/v1/booking.json",
}

// RegisterBookingServiceServer регистрирует реализацию на gRPC-сервере.
func RegisterBookingServiceServer(r grpc.ServiceRegistrar, srv BookingServiceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

func unary[Req, Resp any](
	method string,
	call func(BookingServiceServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				resp, err := call(srv.(BookingServiceServer), ctx, req.(*Req))
				if err != nil {
					return nil, err
				}
				return resp, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, handler)
		},
	}
}
