// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room socket.
const (
	InvalidAuthError  = 3001 // initData or token was missing or invalid.
	RoomNotFoundError = 3003 // The room does not exist or was closed while connected.
	NotInRoomError    = 3004 // The caller is not a participant of the room.
)
