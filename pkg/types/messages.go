package types

// Client -> Server
//
//	set_host_name     { name }
//	select_mode       { mode: "solo" | "team" }
//	select_game_type  { game_type: "bida" | "carom" }
//	confirm_details   {}
//	set_guest_name    { name, first_turn?: 1 | 2 }
//	record_hit        { ball: 1..15 }
//	undo              {}
//	end_turn          {}
//	pause             {}
//	resume            {}
//	leave_room        {}
const (
	MsgSetHostName    = "set_host_name"
	MsgSelectMode     = "select_mode"
	MsgSelectGameType = "select_game_type"
	MsgConfirmDetails = "confirm_details"
	MsgSetGuestName   = "set_guest_name"
	MsgRecordHit      = "record_hit"
	MsgUndo           = "undo"
	MsgEndTurn        = "end_turn"
	MsgPause          = "pause"
	MsgResume         = "resume"
	MsgLeaveRoom      = "leave_room"
)

// Server -> Client
//
//	room_update { version, room: RoomView }   after every accepted change and every clock second
//	end_match   { version, room: RoomView }   once, when the match is decided; room.match.outcome is set
//	error       { error }
const (
	MsgRoomUpdate = "room_update"
	MsgEndMatch   = "end_match"
	MsgError      = "error"
)
