package domain

import "errors"

var (
	ErrInvalidRange    = errors.New("invalid_recalculation_range")
	ErrNoRoomTypes     = errors.New("no_room_types")
	ErrRoomTypeUnknown = errors.New("room_type_not_in_property")
)
