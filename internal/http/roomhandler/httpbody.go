package roomhandler

import "braingarden/internal/battle"

type CreateRoomBody struct {
	Name          string `json:"name"          binding:"required,min=1,max=64"`
	HostName      string `json:"hostName"      binding:"required,min=1,max=64"`
	Password      string `json:"password"`
	WinScore      int    `json:"winScore"      binding:"required,gte=1,lte=100"`
	MemorySetID   string `json:"memorySetId"   binding:"required"`
	ConditionType string `json:"conditionType" binding:"omitempty,oneof=score total"`
} // @name CreateRoomRequest

type CreateRoomResponse struct {
	Message    string          `json:"message"`
	Room       battle.RoomInfo `json:"room"`
	OwnerToken string          `json:"ownerToken"`
} // @name CreateRoomResponse

type VerifyPasswordBody struct {
	RoomID   string `json:"roomId"   binding:"required"`
	Password string `json:"password"`
} // @name VerifyPasswordRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
