package storyhandler

import "storyrelaygo/internal/game"

type ShareStoryBody struct {
	Story     []game.Contribution `json:"story"     binding:"required"`
	RoomCode  string              `json:"roomCode"  example:"ABCD"`
	CreatedAt int64               `json:"createdAt" example:"1735689600000"`
} // @name ShareStoryRequest

type ShareStoryResponse struct {
	StoryID  string `json:"storyId"  example:"aB3kPq2x"`
	ShareURL string `json:"shareUrl" example:"http://localhost:8086/story/aB3kPq2x"`
} // @name ShareStoryResponse

type CreateRoomResponse struct {
	RoomCode string `json:"roomCode" example:"ABCD"`
} // @name CreateRoomResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
