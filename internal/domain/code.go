package domain

import (
	"regexp"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
)

// RoomCodeAlphabet omits I, O, 0 and 1 so codes survive being read aloud.
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{3}-[A-Z0-9]{3}-[A-Z0-9]{3}$`)

// RoomCodeGenerator returns shareable codes of the form XXX-XXX-XXX.
// Codes are not checked against existing rooms.
type RoomCodeGenerator func() RoomID

func NewRoomCodeGenerator() (RoomCodeGenerator, error) {
	gen, err := nanoid.CustomASCII(RoomCodeAlphabet, 9)
	if err != nil {
		return nil, err
	}
	return func() RoomID {
		raw := gen()
		return RoomID(raw[0:3] + "-" + raw[3:6] + "-" + raw[6:9])
	}, nil
}

func IsRoomCode(s string) bool {
	return roomCodePattern.MatchString(s)
}

// NormalizeRoomCode accepts lower case and missing dashes ("abc def ghi", "ABCDEFGHI").
func NormalizeRoomCode(s string) RoomID {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if len(s) != 9 {
		return RoomID(s)
	}
	return RoomID(s[0:3] + "-" + s[3:6] + "-" + s[6:9])
}
