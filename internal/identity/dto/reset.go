package dto

type RequestResetInput struct {
	Email string `json:"email" validate:"required,email"`
}

type CompleteResetInput struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
