package nebulous

import "time"

const (
	ProtocolVersion = 1

	defaultOutboundBuffer = 8
	defaultJoinTimeout    = 5 * time.Second
	defaultPerActorLimit  = 32
	defaultQueueWarning   = 256
	defaultCommandQueue   = 1024
)
