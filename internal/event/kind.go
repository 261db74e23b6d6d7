package event

// Kind identifies one of the fixed event types a ticker emits.
type Kind uint8

const (
	KindConnect Kind = iota + 1
	KindTicks
	KindDisconnect
	KindError
	KindClose
	KindReconnect
	KindNoReconnect
	KindMessage
	KindOrderUpdate
)

var kindNames = map[Kind]string{
	KindConnect:     "connect",
	KindTicks:       "ticks",
	KindDisconnect:  "disconnect",
	KindError:       "error",
	KindClose:       "close",
	KindReconnect:   "reconnect",
	KindNoReconnect: "noreconnect",
	KindMessage:     "message",
	KindOrderUpdate: "order_update",
}

// Kinds returns every recognised kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		KindConnect, KindTicks, KindDisconnect, KindError, KindClose,
		KindReconnect, KindNoReconnect, KindMessage, KindOrderUpdate,
	}
}

func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseKind maps a wire-style event name ("connect", "order_update", ...) to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}
