package domain

import "strconv"

type RoomID string

// RoomIDFor derives the stable room name of a session.
func RoomIDFor(id SessionID) RoomID {
	return RoomID(strconv.FormatUint(uint64(id), 10))
}
