package network

// Client -> server
const (
	MsgTypeHeartbeat    = 1
	MsgTypeJoinGame     = 101
	MsgTypeLeaveGame    = 102
	MsgTypeSubmitAnswer = 201
	MsgTypePlaceBid     = 202
	MsgTypeCastVote     = 203
	MsgTypeBuyItem      = 204
)

// Server -> client
const (
	MsgTypeJoined       = 301
	MsgTypePhaseEntered = 302
	MsgTypeGameEvent    = 303
	MsgTypeError        = 304
)
