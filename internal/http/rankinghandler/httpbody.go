package rankinghandler

type RankingQuery struct {
	SetID         string `form:"set_id"         binding:"required"`
	WinScore      int    `form:"win_score"      binding:"required,gte=1"`
	ConditionType string `form:"condition_type" binding:"required,oneof=score total"`
} // @name RankingQuery

type SubmitRankBody struct {
	Name          string  `json:"name"           binding:"required,min=1,max=64"`
	Time          float64 `json:"time"           binding:"required,gt=0"`
	SetID         string  `json:"set_id"         binding:"required"`
	WinScore      int     `json:"win_score"      binding:"required,gte=1"`
	ConditionType string  `json:"condition_type" binding:"required,oneof=score total"`
} // @name SubmitRankRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
