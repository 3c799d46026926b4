package game

import "strconv"

type idKind uint8

const (
	kindSeat idKind = iota + 1
	kindUser
	kindBot
)

// PlayerID identifies a participant: an offline seat number, a verified user,
// or a synthetic bot. Two IDs are equal only if both kind and value match, so
// Seat 1 and User "1" are different players. The zero value identifies nobody.
type PlayerID struct {
	kind idKind
	seat int
	ref  string
}

// Seat returns the ID of a 1-indexed offline seat.
func Seat(n int) PlayerID {
	return PlayerID{kind: kindSeat, seat: n}
}

// User returns the ID of a verified user.
func User(id string) PlayerID {
	return PlayerID{kind: kindUser, ref: id}
}

// Bot returns the ID of a synthetic participant.
func Bot(id string) PlayerID {
	return PlayerID{kind: kindBot, ref: id}
}

// SeatNumber returns the seat number and true if p is a seat.
func (p PlayerID) SeatNumber() (int, bool) {
	if p.kind != kindSeat {
		return 0, false
	}
	return p.seat, true
}

func (p PlayerID) IsZero() bool { return p.kind == 0 }

func (p PlayerID) IsUser() bool { return p.kind == kindUser }

func (p PlayerID) IsBot() bool { return p.kind == kindBot }

// String renders the bare value: the seat number or the opaque reference.
func (p PlayerID) String() string {
	switch p.kind {
	case kindSeat:
		return strconv.Itoa(p.seat)
	case kindUser, kindBot:
		return p.ref
	}
	return ""
}
