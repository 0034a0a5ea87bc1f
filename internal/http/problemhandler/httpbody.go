package problemhandler

type ProblemQuery struct {
	RoomID       string `form:"room_id"`
	SetID        string `form:"set_id"`
	Seed         string `form:"seed"`
	WrongHistory string `form:"wrong_history"`
	CurrentIndex int    `form:"current_index,default=0" binding:"gte=0"`
} // @name ProblemQuery

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
