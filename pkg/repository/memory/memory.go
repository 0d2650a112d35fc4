package memory

import (
	"github.com/Quangdung1996/chat-sub001/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

type Memory struct {
	userMappings *userMappingRepository
	roomMappings *roomMappingRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		userMappings: newUserMappingRepository(),
		roomMappings: newRoomMappingRepository(),
	}
}

func (m *Memory) UserMappings() interfaces.UserMappingRepository {
	return m.userMappings
}

func (m *Memory) RoomMappings() interfaces.RoomMappingRepository {
	return m.roomMappings
}

func (m *Memory) Close() error {
	return nil
}
