package grpcx

import (
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Leganyst/fitness-booking/internal/calendar"
	"github.com/Leganyst/fitness-booking/internal/service/serverrors"
	"github.com/Leganyst/fitness-booking/internal/transport"
)

const errorDomain = "fitness.v1"

// toStatus переводит ошибку сервиса в gRPC-статус с кодом отказа
// в errdetails.ErrorInfo.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	p := transport.Describe(err)
	st := status.New(codeFor(p), p.Message)
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: p.Reason,
		Domain: errorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}

func codeFor(p transport.Problem) codes.Code {
	switch p.Kind {
	case serverrors.KindNotFound:
		return codes.NotFound
	case serverrors.KindValidation:
		return codes.InvalidArgument
	case serverrors.KindBusinessRule:
		if p.Reason == string(calendar.ReasonDuplicateBooking) {
			return codes.AlreadyExists
		}
		return codes.FailedPrecondition
	case serverrors.KindTransient:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// ReasonOf достаёт код отказа из статуса, полученного клиентом.
func ReasonOf(err error) string {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			return info.GetReason()
		}
	}
	return ""
}
