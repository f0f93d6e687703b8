package protocol

// Client to server events
const (
	EventUserInit     = "user:init"
	EventRoomCreate   = "room:create"
	EventRoomJoin     = "room:join"
	EventRoomLeave    = "room:leave"
	EventRoomList     = "room:list"
	EventStatusUpdate = "status:update"
	EventTimerStart   = "timer:start"
	EventTimerPause   = "timer:pause"
	EventTimerResume  = "timer:resume"
	EventTimerReset   = "timer:reset"
	EventTimerTick    = "timer:tick"
)

// Server to client events. room:list is also sent back as the reply
// to the request of the same name, and timer:reset echoes its command.
const (
	EventUserReady       = "user:ready"
	EventRoomCreated     = "room:created"
	EventRoomJoined      = "room:joined"
	EventRoomLeft        = "room:left"
	EventRoomListUpdated = "room:list:updated"
	EventMemberJoined    = "member:joined"
	EventMemberLeft      = "member:left"
	EventMemberStatus    = "member:status"
	EventTimerStarted    = "timer:started"
	EventTimerPaused     = "timer:paused"
	EventTimerResumed    = "timer:resumed"
	EventTimerUpdate     = "timer:update"
	EventTimerFinished   = "timer:finished"
	EventError           = "error"
)
