package domain

import "errors"

type RoomID string

const (
	MinRoomUsers    = 1
	MaxRoomUsers    = 99
	DefaultMaxUsers = 99
	DefaultBitrate  = 64000
)

var (
	ErrRoomIDEmpty     = errors.New("room id empty")
	ErrBadOccupancy    = errors.New("max users out of range")
	ErrBadBitrate      = errors.New("unsupported bitrate")
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room full")
	ErrAlreadyJoined   = errors.New("already joined")
	ErrNotJoined       = errors.New("not joined to a room")
	ErrPeerUnreachable = errors.New("peer not connected")
)

// Bitrates the external store accepts for a voice room.
var Bitrates = []int{64000, 96000, 128000}

// Room is the provisioned voice-channel record as seen from the presence
// subsystem. Rooms are created and deleted by the external CRUD layer;
// only their live membership is owned here.
type Room struct {
	ID          RoomID `json:"id"`
	Name        string `json:"name"`
	MaxUsers    int    `json:"maxUsers"`
	Bitrate     int    `json:"bitrate"`
	IsTemporary bool   `json:"isTemporary"`
}

// NewRoom applies the store defaults and validates the bounds, keeping
// ad-hoc struct literals out of adapters.
func NewRoom(id RoomID, name string, maxUsers, bitrate int, temporary bool) (*Room, error) {
	if id == "" {
		return nil, ErrRoomIDEmpty
	}
	if maxUsers == 0 {
		maxUsers = DefaultMaxUsers
	}
	if maxUsers < MinRoomUsers || maxUsers > MaxRoomUsers {
		return nil, ErrBadOccupancy
	}
	if bitrate == 0 {
		bitrate = DefaultBitrate
	}
	if !validBitrate(bitrate) {
		return nil, ErrBadBitrate
	}
	return &Room{ID: id, Name: name, MaxUsers: maxUsers, Bitrate: bitrate, IsTemporary: temporary}, nil
}

func validBitrate(b int) bool {
	for _, v := range Bitrates {
		if v == b {
			return true
		}
	}
	return false
}
