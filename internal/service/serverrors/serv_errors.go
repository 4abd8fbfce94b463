package serverrors

import (
	"errors"

	"github.com/Leganyst/fitness-booking/internal/calendar"
)

var (
	// ErrTransient: конфликт блокировок или истёкший дедлайн, операцию можно повторить.
	ErrTransient = errors.New("operation conflicted with a concurrent change, retry later")
	// ErrInternal: непредвиденный сбой; подробности только в логах.
	ErrInternal = errors.New("internal error")
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindBusinessRule
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failure"
	case KindBusinessRule:
		return "business_rule_violation"
	case KindTransient:
		return "transient_conflict"
	default:
		return "internal_failure"
	}
}

// KindOf относит ошибку сервиса к одной из категорий ответа.
func KindOf(err error) Kind {
	if rej, ok := calendar.AsRejection(err); ok {
		switch rej.Kind() {
		case calendar.KindNotFound:
			return KindNotFound
		case calendar.KindValidation:
			return KindValidation
		default:
			return KindBusinessRule
		}
	}
	if errors.Is(err, ErrTransient) {
		return KindTransient
	}
	return KindInternal
}
