package authhandler

import "braingarden/internal/services/memoryset"

type RegisterBody struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
	Password string `json:"password" binding:"required,min=1,max=128"`
} // @name RegisterRequest

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
} // @name TokenResponse

type UserResponse struct {
	ID         int                      `json:"id"`
	Username   string                   `json:"username"`
	MemorySets []memoryset.MemorySetDTO `json:"memory_sets"`
} // @name UserResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
