package dtos

// ----------------------
// OTP issue
// ----------------------

type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

type SendOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ----------------------
// OTP verify
// ----------------------

type VerifyOTPRequest struct {
	Phone    string `json:"phone" validate:"required,e164"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	FullName string `json:"fullName" validate:"max=200"`
}

// VerifyOTPResponse carries the one-time credentials the client uses for
// an immediate password sign-in.
type VerifyOTPResponse struct {
	Success      bool   `json:"success"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	TempPassword string `json:"tempPassword"`
	Message      string `json:"message"`
}
