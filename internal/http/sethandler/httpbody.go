package sethandler

import "braingarden/internal/services/memoryset"

type CreateSetBody struct {
	Title             string               `json:"title" binding:"required,min=1,max=128"`
	Words             []memoryset.WordItem `json:"words" binding:"required,min=1,dive"`
	MemorizeTime      int                  `json:"memorize_time"       binding:"omitempty,gte=1,lte=60"`
	AnswerTime        int                  `json:"answer_time"         binding:"omitempty,gte=1,lte=120"`
	QuestionsPerRound int                  `json:"questions_per_round" binding:"omitempty,gte=1,lte=10"`
	WinScore          int                  `json:"win_score"           binding:"omitempty,gte=1,lte=100"`
	ConditionType     string               `json:"condition_type"      binding:"omitempty,oneof=score total"`
	OrderType         string               `json:"order_type"          binding:"omitempty,oneof=random review sequential"`
} // @name CreateSetRequest

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
