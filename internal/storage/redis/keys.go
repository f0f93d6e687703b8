package redis

import (
	"fmt"

	"github.com/mcoot/studyroom/internal/model"
)

// Key prefix for all studyroom data
const keyPrefix = "studyroom"

// participantKey returns the Redis key for a Participant
func participantKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:participant:%s", keyPrefix, id)
}

// roomKey returns the Redis key for a Room
func roomKey(id model.RoomID) string {
	return fmt.Sprintf("%s:room:%s", keyPrefix, id)
}

// inviteCodeIndexKey returns the Redis key for the invite code -> room id index
func inviteCodeIndexKey(code model.InviteCode) string {
	return fmt.Sprintf("%s:idx:code:%s", keyPrefix, code)
}

// roomOrderIndexKey returns the Redis key for the sorted set of live rooms in creation order
func roomOrderIndexKey() string {
	return fmt.Sprintf("%s:idx:rooms", keyPrefix)
}

// roomSequenceKey returns the Redis key for the room insertion counter
func roomSequenceKey() string {
	return fmt.Sprintf("%s:seq:rooms", keyPrefix)
}

// allKeysPattern matches every key owned by this storage
func allKeysPattern() string {
	return keyPrefix + ":*"
}
